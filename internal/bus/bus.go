package bus

import (
	"log/slog"
	"sync"

	"github.com/driftmail/driftmail/internal/model"
)

const subscriberBuffer = 16

// Bus fans a newly arrived message out to every live subscription whose
// address matches the recipient. Delivery is best-effort: a subscriber that
// has fallen subscriberBuffer events behind loses the event rather than
// blocking publish for everyone else.
type Bus struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string][]*Subscription
}

// Subscription is a live client's interest in one address. It is valid until
// Cancel is called, after which C is closed and no further events arrive.
type Subscription struct {
	address string
	ch      chan model.Message
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]*Subscription),
	}
}

func (b *Bus) Subscribe(address string) *Subscription {
	sub := &Subscription{
		address: address,
		ch:      make(chan model.Message, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[address] = append(b.subs[address], sub)
	return sub
}

// Publish delivers msg to every subscription for msg.To in subscribe order.
// Publishing with no subscribers is a no-op. Per-subscriber delivery order
// matches publish order because delivery happens under the bus lock.
func (b *Bus) Publish(msg model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[msg.To] {
		select {
		case sub.ch <- msg:
		default:
			b.logger.Warn("dropping event for slow subscriber", "address", msg.To, "id", msg.ID)
		}
	}
}

// Cancel removes the subscription and closes its channel. It is idempotent,
// and once it returns no further events are delivered.
func (b *Bus) Cancel(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.address]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.address] = append(subs[:i], subs[i+1:]...)
			if len(b.subs[sub.address]) == 0 {
				delete(b.subs, sub.address)
			}
			close(sub.ch)
			return
		}
	}
}

func (s *Subscription) C() <-chan model.Message {
	return s.ch
}

func (s *Subscription) Address() string {
	return s.address
}
