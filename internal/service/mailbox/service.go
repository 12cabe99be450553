package mailbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nrednav/cuid2"

	"github.com/driftmail/driftmail/internal/bus"
	"github.com/driftmail/driftmail/internal/mailparse"
	"github.com/driftmail/driftmail/internal/model"
	"github.com/driftmail/driftmail/internal/store"
)

// Service is the single write path for inbound mail. The SMTP receiver and
// the ingest endpoint both deliver through Record, so append order in a
// mailbox always matches publish order on the bus.
type Service struct {
	logger *slog.Logger
	boxes  *store.Mailboxes
	events *bus.Bus

	// mu serializes Record: the cuid2 generator is not safe for concurrent
	// use, and per-recipient append order must match publish order.
	mu sync.Mutex
}

func New(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		boxes:  store.NewMailboxes(),
		events: bus.New(logger),
	}
}

func (s *Service) Record(ctx context.Context, env model.Envelope) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:      model.MessageID(cuid2.Generate()),
		To:      canonical(env.To, model.DefaultRecipient),
		From:    canonical(env.From, model.DefaultSender),
		Subject: env.Subject,
		Body:    env.Body,
		Time:    time.Now().UTC(),
		Read:    false,
	}
	if msg.Subject == "" {
		msg.Subject = model.DefaultSubject
	}

	s.boxes.Append(msg)
	s.events.Publish(msg)

	s.logger.Info("message recorded", "id", msg.ID, "to", msg.To, "from", msg.From)
	return &msg, nil
}

func (s *Service) Snapshot(address string) []model.Message {
	return s.boxes.Snapshot(canonical(address, model.DefaultRecipient))
}

func (s *Service) Subscribe(address string) *bus.Subscription {
	return s.events.Subscribe(canonical(address, model.DefaultRecipient))
}

func (s *Service) Unsubscribe(sub *bus.Subscription) {
	s.events.Cancel(sub)
}

// canonical folds an address for bucketing while leaving the parser's
// sentinel value untouched.
func canonical(address, fallback string) string {
	if address == "" || address == fallback {
		return fallback
	}
	return mailparse.Normalize(address)
}
