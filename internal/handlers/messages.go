package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftmail/driftmail/internal/bus"
	"github.com/driftmail/driftmail/internal/model"
)

type MailboxService interface {
	Record(ctx context.Context, env model.Envelope) (*model.Message, error)
	Snapshot(address string) []model.Message
	Subscribe(address string) *bus.Subscription
	Unsubscribe(sub *bus.Subscription)
}

// GetMessages answers snapshot queries for an address and, with sse=true,
// upgrades to a long-lived event stream for the same address.
func GetMessages(service MailboxService, keepalive time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": model.ErrorMissingAddress.Error()})
		}

		if c.QueryParam("sse") == "true" {
			return streamMessages(c, service, address, keepalive)
		}

		return c.JSON(http.StatusOK, service.Snapshot(address))
	}
}

func streamMessages(c echo.Context, service MailboxService, address string, keepalive time.Duration) error {
	sub := service.Subscribe(address)
	defer service.Unsubscribe(sub)

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("marshalling message: %w", err)
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// PostMessage ingests a message over HTTP, the same path the out-of-process
// SMTP bridge forwards through.
func PostMessage(service MailboxService) echo.HandlerFunc {
	return func(c echo.Context) error {
		env := &model.Envelope{}
		if err := c.Bind(env); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": model.ErrorInvalidEnvelope.Error()})
		}
		if !env.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": model.ErrorInvalidEnvelope.Error()})
		}

		msg, err := service.Record(c.Request().Context(), *env)
		if err != nil {
			return fmt.Errorf("recording message: %w", err)
		}
		return c.JSON(http.StatusOK, msg)
	}
}
