// Package bridge composes the message store, lock registry, contract
// store, and event broadcaster behind the coordination operations the
// HTTP surface and CLI expose.
//
// Every operation is all-or-nothing: input is validated against its
// schema before any store is touched, so a failure produces no state
// change and no event. Composite operations (publish-with-inline-
// contract) run under one façade mutex, which pins their cross-store
// event order: contract.created, then contract.message_linked, then
// message.published.
package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/daviddao/agentbridge/pkg/contract"
	"github.com/daviddao/agentbridge/pkg/event"
	"github.com/daviddao/agentbridge/pkg/locks"
	"github.com/daviddao/agentbridge/pkg/mailbox"
	"github.com/daviddao/agentbridge/pkg/model"
)

// Options wires a Bridge. All stores are required except Logger.
type Options struct {
	Mailbox   *mailbox.Store
	Contracts *contract.Store
	Locks     *locks.Registry
	Events    *event.Broadcaster
	Logger    *slog.Logger
}

// Bridge is the coordination façade.
type Bridge struct {
	mu        sync.Mutex
	mailbox   *mailbox.Store
	contracts *contract.Store
	locks     *locks.Registry
	events    *event.Broadcaster
	logger    *slog.Logger
}

// New creates a façade over the given stores.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		mailbox:   opts.Mailbox,
		contracts: opts.Contracts,
		locks:     opts.Locks,
		events:    opts.Events,
		logger:    logger,
	}
}

// PublishInput is a publish-message request. ContractID and Contract
// are mutually exclusive: reference an existing contract, or create
// one inline.
type PublishInput struct {
	Recipient  string                `json:"recipient"`
	Content    string                `json:"content"`
	Sender     string                `json:"sender,omitempty"`
	ContractID string                `json:"contract_id,omitempty"`
	Contract   *contract.CreateInput `json:"contract,omitempty"`
}

// PublishResult is the outcome of a publish: the stored message and,
// when a contract was created inline or referenced, that contract.
type PublishResult struct {
	Message  *model.Message  `json:"message"`
	Contract *model.Contract `json:"contract,omitempty"`
}

// PublishMessage records a message, optionally creating or linking a
// contract, and emits the corresponding events.
func (b *Bridge) PublishMessage(input PublishInput) (*PublishResult, error) {
	if input.Recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if input.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if input.ContractID != "" && input.Contract != nil {
		return nil, fmt.Errorf("%w: contract_id and inline contract are mutually exclusive", ErrValidation)
	}
	if input.Contract != nil {
		if input.Contract.Title == "" {
			return nil, fmt.Errorf("%w: contract.title is required", ErrValidation)
		}
		if input.Contract.Initiator == "" {
			return nil, fmt.Errorf("%w: contract.initiator is required", ErrValidation)
		}
		if input.Contract.Priority != "" && !input.Contract.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Contract.Priority)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var linked *model.Contract
	if input.ContractID != "" {
		linked = b.contracts.Get(input.ContractID)
		if linked == nil {
			return nil, fmt.Errorf("contract %q: %w", input.ContractID, contract.ErrNotFound)
		}
	}

	if input.Contract != nil {
		created, err := b.contracts.Create(*input.Contract)
		if err != nil {
			return nil, err
		}
		b.events.Publish(model.EventContractCreated, created)
		linked = created
	}

	contractID := ""
	if linked != nil {
		contractID = linked.ID
	}
	msg := b.mailbox.Publish(input.Recipient, input.Content, input.Sender, contractID)

	if linked != nil {
		if b.contracts.LinkMessage(linked.ID, msg.ID) {
			b.events.Publish(model.EventContractMessageLinked, map[string]string{
				"contract_id": linked.ID,
				"message_id":  msg.ID,
			})
		}
		linked = b.contracts.Get(linked.ID)
	}
	b.events.Publish(model.EventMessagePublished, msg)

	b.logger.Debug("message published",
		"message_id", msg.ID,
		"recipient", input.Recipient,
		"contract_id", contractID,
	)
	return &PublishResult{Message: msg, Contract: linked}, nil
}

// FetchPending returns the recipient's unacknowledged messages in
// publish order.
func (b *Bridge) FetchPending(recipient string) ([]*model.Message, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	return b.mailbox.FetchPending(recipient), nil
}

// Acknowledge marks messages acknowledged and emits one event per
// newly-acknowledged message. Unknown and already-acknowledged IDs are
// skipped silently.
func (b *Bridge) Acknowledge(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: message_ids is required", ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	count, acked := b.mailbox.Acknowledge(ids)
	for _, msg := range acked {
		b.events.Publish(model.EventMessageAcknowledged, msg)
	}
	return count, nil
}

// CreateContract validates and creates a contract, emitting
// contract.created.
func (b *Bridge) CreateContract(input contract.CreateInput) (*model.Contract, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Initiator == "" {
		return nil, fmt.Errorf("%w: initiator is required", ErrValidation)
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	created, err := b.contracts.Create(input)
	if err != nil {
		return nil, err
	}
	b.events.Publish(model.EventContractCreated, created)
	return created, nil
}

// GetContract returns the contract or contract.ErrNotFound.
func (b *Bridge) GetContract(id string) (*model.Contract, error) {
	c := b.contracts.Get(id)
	if c == nil {
		return nil, fmt.Errorf("contract %q: %w", id, contract.ErrNotFound)
	}
	return c, nil
}

// UpdateContract applies a status/field update and emits
// contract.updated carrying the contract, the acting actor, and the
// note. At least one updatable field must be present.
func (b *Bridge) UpdateContract(id string, input contract.UpdateInput) (*model.Contract, error) {
	if input.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if input.Status == "" && input.Owner == nil && input.Note == "" &&
		input.Metadata == nil && input.Tags == nil && input.Files == nil && input.DueAt == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	updated, err := b.contracts.Update(id, input)
	if err != nil {
		return nil, err
	}
	b.events.Publish(model.EventContractUpdated, map[string]any{
		"contract": updated,
		"actor":    input.Actor,
		"note":     input.Note,
	})
	return updated, nil
}

// AcquireLock delegates to the lock registry, which emits its own
// events.
func (b *Bridge) AcquireLock(resource, holder string, ttl time.Duration) (*model.Lock, error) {
	if resource == "" {
		return nil, fmt.Errorf("%w: resource is required", ErrValidation)
	}
	if holder == "" {
		return nil, fmt.Errorf("%w: holder is required", ErrValidation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks.Acquire(resource, holder, ttl)
}

// RenewLock delegates to the lock registry.
func (b *Bridge) RenewLock(resource string, ttl time.Duration) (*model.Lock, error) {
	if resource == "" {
		return nil, fmt.Errorf("%w: resource is required", ErrValidation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks.Renew(resource, ttl)
}

// ReleaseLock delegates to the lock registry. The holder is advisory
// and not checked.
func (b *Bridge) ReleaseLock(resource string) error {
	if resource == "" {
		return fmt.Errorf("%w: resource is required", ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks.Release(resource)
}

// Subscribe opens an event subscription: buffered replay first, then
// live events.
func (b *Bridge) Subscribe() *event.Subscription {
	return b.events.Subscribe()
}

// Status is the coordination overview served to dashboards and the
// status CLI verb.
type Status struct {
	PendingMessages map[string]int               `json:"pending_messages"`
	TotalMessages   int                          `json:"total_messages"`
	ActiveLocks     []*model.Lock                `json:"active_locks"`
	Contracts       map[model.ContractStatus]int `json:"contracts"`
	Subscribers     int                          `json:"subscribers"`
	EventsPublished uint64                       `json:"events_published"`
}

// Status reports pending-mailbox counts, active locks, contract counts
// by status, and broadcast statistics.
func (b *Bridge) Status() *Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Status{
		PendingMessages: b.mailbox.PendingCounts(),
		TotalMessages:   b.mailbox.Len(),
		ActiveLocks:     b.locks.List(),
		Contracts:       b.contracts.CountsByStatus(),
		Subscribers:     b.events.SubscriberCount(),
		EventsPublished: b.events.Total(),
	}
}

// Flush forces any pending contract persistence to disk. Called at
// shutdown.
func (b *Bridge) Flush() error {
	return b.contracts.Flush()
}

// Clear resets every store. Test isolation only.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mailbox.Clear()
	b.contracts.Clear()
	b.locks.Clear()
}
