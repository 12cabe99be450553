package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/driftmail/driftmail/internal/model"
	"github.com/driftmail/driftmail/internal/service/mailbox"
)

func get(e *echo.Echo, handler echo.HandlerFunc, target string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, handler(c)
}

func post(e *echo.Echo, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/api/emails", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, handler(c)
}

func TestGetMessages(t *testing.T) {
	assert := assert.New(t)

	e := echo.New()
	service := mailbox.New(slog.Default())
	handler := GetMessages(service, time.Second)

	t.Run("missing address is rejected", func(t *testing.T) {
		rec, err := get(e, handler, "/api/emails")
		assert.Nil(err)
		assert.Equal(http.StatusBadRequest, rec.Code)
		assert.Contains(rec.Body.String(), "error")
	})

	t.Run("unknown address yields an empty array", func(t *testing.T) {
		rec, err := get(e, handler, "/api/emails?address=nobody@x.test")
		assert.Nil(err)
		assert.Equal(http.StatusOK, rec.Code)
		assert.Equal("[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("stored messages come back in order", func(t *testing.T) {
		first, err := service.Record(context.Background(), model.Envelope{To: "u1@x.test", From: "a@y.test", Subject: "one", Body: "1"})
		assert.Nil(err)
		second, err := service.Record(context.Background(), model.Envelope{To: "u1@x.test", From: "a@y.test", Subject: "two", Body: "2"})
		assert.Nil(err)

		rec, err := get(e, handler, "/api/emails?address=u1@x.test")
		assert.Nil(err)
		assert.Equal(http.StatusOK, rec.Code)

		messages := []model.Message{}
		assert.Nil(json.Unmarshal(rec.Body.Bytes(), &messages))
		assert.Len(messages, 2)
		assert.Equal(first.ID, messages[0].ID)
		assert.Equal(second.ID, messages[1].ID)
	})
}

func TestPostMessage(t *testing.T) {
	assert := assert.New(t)

	e := echo.New()
	service := mailbox.New(slog.Default())
	handler := PostMessage(service)

	t.Run("missing field is rejected and nothing is stored", func(t *testing.T) {
		rec, err := post(e, handler, `{"to":"u1@x.test","from":"a@y.test","subject":"Hi"}`)
		assert.Nil(err)
		assert.Equal(http.StatusBadRequest, rec.Code)
		assert.Len(service.Snapshot("u1@x.test"), 0)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		rec, err := post(e, handler, `{not json`)
		assert.Nil(err)
		assert.Equal(http.StatusBadRequest, rec.Code)
	})

	t.Run("valid payload creates a message", func(t *testing.T) {
		rec, err := post(e, handler, `{"to":"u1@x.test","from":"a@y.test","subject":"Hi","body":"hello"}`)
		assert.Nil(err)
		assert.Equal(http.StatusOK, rec.Code)

		created := model.Message{}
		assert.Nil(json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(created.ID)
		assert.False(created.Read)
		assert.WithinDuration(time.Now().UTC(), created.Time, time.Second)
		assert.Equal("u1@x.test", created.To)
		assert.Equal("a@y.test", created.From)
		assert.Equal("Hi", created.Subject)
		assert.Equal("hello", created.Body)

		messages := service.Snapshot("u1@x.test")
		assert.Len(messages, 1)
		assert.Equal(created.ID, messages[0].ID)
	})
}

func TestStreamMessages(t *testing.T) {
	assert := assert.New(t)

	e := echo.New()
	service := mailbox.New(slog.Default())
	handler := GetMessages(service, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/emails?address=u1@x.test&sse=true", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	done := make(chan error, 1)
	go func() {
		done <- handler(c)
	}()

	// let the subscription register before delivering
	time.Sleep(100 * time.Millisecond)

	msg, err := service.Record(context.Background(), model.Envelope{To: "u1@x.test", From: "a@y.test", Subject: "Hi", Body: "hello"})
	assert.Nil(err)
	_, err = service.Record(context.Background(), model.Envelope{To: "other@x.test", From: "a@y.test", Subject: "not yours", Body: "x"})
	assert.Nil(err)

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Nil(err)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop on disconnect")
	}

	body := rec.Body.String()
	assert.Equal("text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(body, "data: ")
	assert.Contains(body, string(msg.ID))
	assert.Contains(body, ": keepalive\n\n")
	assert.NotContains(body, "not yours")
}
