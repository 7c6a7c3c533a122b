// Package model defines the core domain types for agentbridge.
//
// Agentbridge is a local message-passing and coordination layer ("bridge")
// that lets independent agent processes exchange tasks, structured results,
// resource locks, and progress events. Four kinds of state flow through it:
//
//   - Messages: per-recipient mailbox entries, acknowledged exactly once.
//   - Contracts: tracked units of delegated work with an append-only
//     status history.
//   - Locks: named TTL-based mutual-exclusion tokens guarding external
//     resources such as file paths.
//   - Events: notifications of every state change, fanned out to
//     subscribers with a bounded replay buffer for catch-up.
package model

import "time"

// Message is one unit of mailbox content. It is created on publish,
// mutated only to flip Acknowledged, and never deleted: acknowledged
// messages stay queryable by ID but drop out of pending fetches.
type Message struct {
	ID           string    `json:"id"`
	Recipient    string    `json:"recipient"`
	Sender       string    `json:"sender,omitempty"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
	ContractID   string    `json:"contract_id,omitempty"`
}

// Lock is a mutual-exclusion record for a named resource. At most one
// non-expired lock exists per resource at any time. The holder is
// advisory: release does not verify it.
type Lock struct {
	Resource  string    `json:"resource"`
	Holder    string    `json:"holder"`
	TTLSec    int       `json:"ttl_sec"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lock has passed its expiry at the given
// instant.
func (l *Lock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// ContractStatus enumerates the lifecycle states of a contract.
type ContractStatus string

const (
	StatusProposed   ContractStatus = "proposed"
	StatusAccepted   ContractStatus = "accepted"
	StatusInProgress ContractStatus = "in_progress"
	StatusCompleted  ContractStatus = "completed"
	StatusFailed     ContractStatus = "failed"
	StatusCancelled  ContractStatus = "cancelled"
)

// Valid reports whether s is one of the defined contract statuses.
func (s ContractStatus) Valid() bool {
	switch s {
	case StatusProposed, StatusAccepted, StatusInProgress,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Priority enumerates contract priorities.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// HistoryEntry records one meaningful contract transition: a status
// change, or an update that carried a note.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Status    ContractStatus `json:"status"`
	Note      string         `json:"note,omitempty"`
}

// Contract is the unit of coordinated work, with a full audit trail.
// History is non-empty from creation and append-only. RelatedMessageID
// is set at most once (first writer wins).
type Contract struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Initiator        string            `json:"initiator"`
	Owner            string            `json:"owner,omitempty"`
	Status           ContractStatus    `json:"status"`
	Priority         Priority          `json:"priority"`
	Tags             []string          `json:"tags"`
	Files            []string          `json:"files"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DueAt            *time.Time        `json:"due_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	RelatedMessageID string            `json:"related_message_id,omitempty"`
	History          []HistoryEntry    `json:"history"`
}

// Clone returns a deep copy of the contract. Stores hand out clones so
// callers cannot mutate indexed state behind the store's back.
func (c *Contract) Clone() *Contract {
	out := *c
	if c.Tags != nil {
		out.Tags = make([]string, len(c.Tags))
		copy(out.Tags, c.Tags)
	}
	if c.Files != nil {
		out.Files = make([]string, len(c.Files))
		copy(out.Files, c.Files)
	}
	out.History = append([]HistoryEntry(nil), c.History...)
	if c.DueAt != nil {
		due := *c.DueAt
		out.DueAt = &due
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Event types use dot-namespaced names: the entity, then what happened.
const (
	EventMessagePublished      = "message.published"
	EventMessageAcknowledged   = "message.acknowledged"
	EventContractCreated       = "contract.created"
	EventContractUpdated       = "contract.updated"
	EventContractMessageLinked = "contract.message_linked"
	EventLockCreated           = "lock.created"
	EventLockRenewed           = "lock.renewed"
	EventLockReleased          = "lock.released"
	EventLockExpired           = "lock.expired"
)

// Event is a notification of a state change. Events are created
// synchronously with the change, buffered for replay, and never mutated.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}
