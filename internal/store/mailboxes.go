package store

import (
	"sync"

	"github.com/driftmail/driftmail/internal/model"
)

// Mailboxes maps recipient addresses to their received messages in arrival
// order. Buckets are append-only; eviction happens only by process restart.
type Mailboxes struct {
	mu    sync.RWMutex
	boxes map[string][]model.Message
}

func NewMailboxes() *Mailboxes {
	return &Mailboxes{
		boxes: make(map[string][]model.Message),
	}
}

func (m *Mailboxes) Append(msg model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boxes[msg.To] = append(m.boxes[msg.To], msg)
}

// Snapshot returns a copy of the mailbox for address, isolated from any
// append that happens after it returns. Unknown addresses yield an empty
// slice, not nil.
func (m *Mailboxes) Snapshot(address string) []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	messages := make([]model.Message, len(m.boxes[address]))
	copy(messages, m.boxes[address])
	return messages
}

func (m *Mailboxes) Len(address string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.boxes[address])
}
