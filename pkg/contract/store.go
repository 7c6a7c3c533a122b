// Package contract implements the versioned task-contract store: task
// records with an append-only status history, persisted to a single
// JSON snapshot on disk with debounced writes.
package contract

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/agentbridge/pkg/model"
)

var (
	// ErrNotFound is returned when no contract exists with the given ID.
	ErrNotFound = errors.New("contract not found")

	// ErrInvalid wraps rejected create/update input.
	ErrInvalid = errors.New("invalid contract input")
)

// Options configures a Store. A zero Path disables persistence (the
// store is then purely in-memory, which tests use).
type Options struct {
	// Path is the JSON snapshot file, overwritten wholesale on flush.
	Path string

	// Logger receives persistence diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Debounce is the coalescing window for disk writes. Zero means
	// one second.
	Debounce time.Duration

	// RetryDelay is the pause before retrying a failed write. Zero
	// means five seconds.
	RetryDelay time.Duration
}

// Store owns the contract map and its persistence schedule. Safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	contracts map[string]*model.Contract

	path       string
	logger     *slog.Logger
	debounce   time.Duration
	retryDelay time.Duration
	timer      *time.Timer
	dirty      bool
}

// New creates a contract store. Call Load to populate it from a prior
// snapshot before serving.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &Store{
		contracts:  make(map[string]*model.Contract),
		path:       opts.Path,
		logger:     opts.Logger,
		debounce:   opts.Debounce,
		retryDelay: opts.RetryDelay,
	}
}

// CreateInput is the caller-supplied portion of a new contract.
type CreateInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Initiator   string            `json:"initiator"`
	Owner       string            `json:"owner,omitempty"`
	Priority    model.Priority    `json:"priority,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Files       []string          `json:"files,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	DueAt       *time.Time        `json:"due_at,omitempty"`
}

// Create validates the input, stores a new contract in status proposed
// with its first history entry, and schedules a persistence flush.
func (s *Store) Create(input CreateInput) (*model.Contract, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if input.Initiator == "" {
		return nil, fmt.Errorf("%w: initiator is required", ErrInvalid)
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, priority)
	}

	// Copy caller-owned containers so retained inputs cannot mutate
	// stored state.
	var metadata map[string]string
	if input.Metadata != nil {
		metadata = make(map[string]string, len(input.Metadata))
		for k, v := range input.Metadata {
			metadata[k] = v
		}
	}
	var dueAt *time.Time
	if input.DueAt != nil {
		due := *input.DueAt
		dueAt = &due
	}

	now := time.Now().UTC()
	c := &model.Contract{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Initiator:   input.Initiator,
		Owner:       input.Owner,
		Status:      model.StatusProposed,
		Priority:    priority,
		Tags:        append([]string{}, input.Tags...),
		Files:       append([]string{}, input.Files...),
		CreatedAt:   now,
		UpdatedAt:   now,
		DueAt:       dueAt,
		Metadata:    metadata,
		History: []model.HistoryEntry{{
			ID:        uuid.NewString(),
			Timestamp: now,
			Actor:     input.Initiator,
			Status:    model.StatusProposed,
			Note:      "Contract created",
		}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = c
	s.scheduleFlushLocked()
	return c.Clone(), nil
}

// Get returns a copy of the contract, or nil if absent.
func (s *Store) Get(id string) *model.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil
	}
	return c.Clone()
}

// UpdateInput carries the fields of an update call. Nil/zero fields
// are left untouched. Actor attributes any resulting history entry.
type UpdateInput struct {
	Actor    string               `json:"actor"`
	Status   model.ContractStatus `json:"status,omitempty"`
	Owner    *string              `json:"owner,omitempty"`
	Note     string               `json:"note,omitempty"`
	Metadata map[string]string    `json:"metadata,omitempty"`
	Tags     []string             `json:"tags,omitempty"`
	Files    []string             `json:"files,omitempty"`
	DueAt    *time.Time           `json:"due_at,omitempty"`
}

// Update applies the provided fields. Metadata is shallow-merged: new
// keys overwrite same-named old keys, other old keys survive. A
// history entry is appended only when the status actually changed or a
// non-empty note was supplied; UpdatedAt is always refreshed.
func (s *Store) Update(id string, input UpdateInput) (*model.Contract, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, input.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	statusChanged := false
	if input.Status != "" && input.Status != c.Status {
		c.Status = input.Status
		statusChanged = true
	}
	if input.Owner != nil {
		c.Owner = *input.Owner
	}
	if input.Tags != nil {
		c.Tags = append([]string{}, input.Tags...)
	}
	if input.Files != nil {
		c.Files = append([]string{}, input.Files...)
	}
	if input.DueAt != nil {
		due := *input.DueAt
		c.DueAt = &due
	}
	if input.Metadata != nil {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(input.Metadata))
		}
		for k, v := range input.Metadata {
			c.Metadata[k] = v
		}
	}

	if statusChanged || input.Note != "" {
		c.History = append(c.History, model.HistoryEntry{
			ID:        uuid.NewString(),
			Timestamp: now,
			Actor:     input.Actor,
			Status:    c.Status,
			Note:      input.Note,
		})
	}
	c.UpdatedAt = now

	s.scheduleFlushLocked()
	return c.Clone(), nil
}

// LinkMessage sets RelatedMessageID if it is currently unset. First
// writer wins; a second link, or a link to a missing contract, is a
// no-op. Reports whether the link was made now.
func (s *Store) LinkMessage(contractID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contracts[contractID]
	if !ok || c.RelatedMessageID != "" {
		return false
	}
	c.RelatedMessageID = messageID
	c.UpdatedAt = time.Now().UTC()
	s.scheduleFlushLocked()
	return true
}

// List returns copies of all contracts.
func (s *Store) List() []*model.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, c.Clone())
	}
	return out
}

// CountsByStatus returns the number of contracts per status.
func (s *Store) CountsByStatus() map[model.ContractStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[model.ContractStatus]int)
	for _, c := range s.contracts {
		counts[c.Status]++
	}
	return counts
}

// Clear drops all contracts and any pending flush. Test isolation only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts = make(map[string]*model.Contract)
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
