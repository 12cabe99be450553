package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driftmail/driftmail/internal/model"
)

// Recorder is the receiver's "deliver parsed message" step. The mailbox
// service implements it for the in-process topology; HTTPRecorder implements
// it for the out-of-process bridge topology.
type Recorder interface {
	Record(ctx context.Context, env model.Envelope) (*model.Message, error)
}

// HTTPRecorder forwards envelopes to a mail-server ingest endpoint.
type HTTPRecorder struct {
	url    string
	client *http.Client
}

func NewHTTPRecorder(url string) *HTTPRecorder {
	return &HTTPRecorder{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *HTTPRecorder) Record(ctx context.Context, env model.Envelope) (*model.Message, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshalling envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forwarding message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forwarding message: unexpected status %s", resp.Status)
	}

	msg := &model.Message{}
	if err := json.NewDecoder(resp.Body).Decode(msg); err != nil {
		return nil, fmt.Errorf("decoding ingest response: %w", err)
	}
	return msg, nil
}
