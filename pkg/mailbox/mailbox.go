// Package mailbox implements the append-only message store: a mailbox
// keyed by recipient with exactly-once acknowledgment.
//
// Messages are indexed by ID and by recipient at write time, so fetch
// and acknowledge cost is independent of total message volume. Nothing
// is ever deleted; acknowledged messages stay queryable by ID but are
// excluded from pending fetches permanently (no redelivery).
package mailbox

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/agentbridge/pkg/model"
)

// Store is the in-memory message store. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	byID        map[string]*model.Message
	byRecipient map[string][]*model.Message
}

// New creates an empty message store.
func New() *Store {
	return &Store{
		byID:        make(map[string]*model.Message),
		byRecipient: make(map[string][]*model.Message),
	}
}

// Publish records a message for the recipient and returns a copy of it.
// Both indexes are updated under one lock.
func (s *Store) Publish(recipient, content, sender, contractID string) *model.Message {
	msg := &model.Message{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Sender:     sender,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		ContractID: contractID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[msg.ID] = msg
	s.byRecipient[recipient] = append(s.byRecipient[recipient], msg)

	out := *msg
	return &out
}

// Get returns a copy of the message with the given ID, or nil.
func (s *Store) Get(id string) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok {
		return nil
	}
	out := *msg
	return &out
}

// FetchPending returns copies of all unacknowledged messages for the
// recipient, in publish order.
func (s *Store) FetchPending(recipient string) []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*model.Message
	for _, msg := range s.byRecipient[recipient] {
		if msg.Acknowledged {
			continue
		}
		out := *msg
		pending = append(pending, &out)
	}
	return pending
}

// Acknowledge marks each referenced, not-yet-acknowledged message as
// acknowledged. Unknown and already-acknowledged IDs are silently
// skipped and not counted. Returns the count of newly-acknowledged
// messages and copies of them, in the order given.
func (s *Store) Acknowledge(ids []string) (int, []*model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acked []*model.Message
	for _, id := range ids {
		msg, ok := s.byID[id]
		if !ok || msg.Acknowledged {
			continue
		}
		msg.Acknowledged = true
		out := *msg
		acked = append(acked, &out)
	}
	return len(acked), acked
}

// PendingCounts returns the number of unacknowledged messages per
// recipient, omitting recipients with none.
func (s *Store) PendingCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for recipient, msgs := range s.byRecipient {
		for _, msg := range msgs {
			if !msg.Acknowledged {
				counts[recipient]++
			}
		}
	}
	return counts
}

// Len returns the total number of messages ever published.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Clear drops all messages. Test isolation only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*model.Message)
	s.byRecipient = make(map[string][]*model.Message)
}
