package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/daviddao/agentbridge/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{}) // in-memory, no persistence
}

func TestCreate_Defaults(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Create(CreateInput{Title: "T", Initiator: "cursor"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("contract has empty ID")
	}
	if c.Status != model.StatusProposed {
		t.Fatalf("status = %q, want proposed", c.Status)
	}
	if c.Priority != model.PriorityMedium {
		t.Fatalf("priority = %q, want medium", c.Priority)
	}
	if c.Tags == nil || c.Files == nil {
		t.Fatal("tags/files should default to empty slices, not nil")
	}

	// The defaults must survive the read path too.
	got := s.Get(c.ID)
	if got.Tags == nil || got.Files == nil {
		t.Fatal("Get returned nil tags/files for a fresh contract")
	}
}

func TestCreate_DoesNotAliasInput(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]string{"branch": "main"}
	due := time.Now().UTC().Add(time.Hour)
	wantDue := due
	c, err := s.Create(CreateInput{
		Title:     "T",
		Initiator: "cursor",
		Metadata:  meta,
		DueAt:     &due,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's inputs after Create must not reach the store.
	meta["branch"] = "changed"
	due = due.Add(24 * time.Hour)

	got := s.Get(c.ID)
	if got.Metadata["branch"] != "main" {
		t.Fatalf("stored metadata follows the caller's map: %+v", got.Metadata)
	}
	if !got.DueAt.Equal(wantDue) {
		t.Fatalf("stored DueAt follows the caller's pointer: %s", got.DueAt)
	}
}

func TestCreate_FirstHistoryEntry(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Create(CreateInput{Title: "T", Initiator: "cursor"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(c.History))
	}
	h := c.History[0]
	if h.Actor != "cursor" || h.Status != model.StatusProposed || h.Note != "Contract created" {
		t.Fatalf("first history entry = %+v", h)
	}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(CreateInput{Initiator: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing title: err = %v, want ErrInvalid", err)
	}
	if _, err := s.Create(CreateInput{Title: "T"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing initiator: err = %v, want ErrInvalid", err)
	}
	if _, err := s.Create(CreateInput{Title: "T", Initiator: "x", Priority: "urgent"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("bad priority: err = %v, want ErrInvalid", err)
	}
}

func TestGet_Missing(t *testing.T) {
	s := newTestStore(t)
	if got := s.Get("missing"); got != nil {
		t.Fatalf("Get(missing) = %+v, want nil", got)
	}
}

func TestUpdate_StatusChangeAppendsHistory(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	updated, err := s.Update(c.ID, UpdateInput{Actor: "codex", Status: model.StatusAccepted})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != model.StatusAccepted {
		t.Fatalf("status = %q, want accepted", updated.Status)
	}
	if len(updated.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(updated.History))
	}
	last := updated.History[1]
	if last.Actor != "codex" || last.Status != model.StatusAccepted {
		t.Fatalf("appended entry = %+v", last)
	}
}

func TestUpdate_SameStatusNoHistory(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	updated, err := s.Update(c.ID, UpdateInput{Actor: "codex", Status: model.StatusProposed})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.History) != 1 {
		t.Fatalf("history length = %d, want 1 (no transition)", len(updated.History))
	}
}

func TestUpdate_NoteAloneAppendsHistory(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	updated, _ := s.Update(c.ID, UpdateInput{Actor: "codex", Note: "looked at it"})
	if len(updated.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(updated.History))
	}
	if updated.History[1].Note != "looked at it" {
		t.Fatalf("note = %q", updated.History[1].Note)
	}
	// Status column of the entry records the current (unchanged) status.
	if updated.History[1].Status != model.StatusProposed {
		t.Fatalf("entry status = %q, want proposed", updated.History[1].Status)
	}
}

func TestUpdate_FieldOnlyNoHistory(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	owner := "codex"
	updated, _ := s.Update(c.ID, UpdateInput{
		Actor: "codex",
		Owner: &owner,
		Tags:  []string{"infra"},
		Files: []string{"a.go"},
	})
	if len(updated.History) != 1 {
		t.Fatalf("history length = %d, want 1 (field-only update)", len(updated.History))
	}
	if updated.Owner != "codex" || len(updated.Tags) != 1 || len(updated.Files) != 1 {
		t.Fatalf("fields not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(c.UpdatedAt) && !updated.UpdatedAt.Equal(c.UpdatedAt) {
		t.Fatal("UpdatedAt not refreshed")
	}
}

func TestUpdate_MetadataShallowMerge(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{
		Title: "T", Initiator: "cursor",
		Metadata: map[string]string{"keep": "old", "replace": "old"},
	})

	updated, _ := s.Update(c.ID, UpdateInput{
		Actor:    "codex",
		Metadata: map[string]string{"replace": "new", "add": "new"},
	})
	want := map[string]string{"keep": "old", "replace": "new", "add": "new"}
	for k, v := range want {
		if updated.Metadata[k] != v {
			t.Fatalf("metadata[%q] = %q, want %q", k, updated.Metadata[k], v)
		}
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Update("missing", UpdateInput{Actor: "x", Note: "n"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_HistoryMonotonic(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	prev := 1
	steps := []UpdateInput{
		{Actor: "a", Status: model.StatusAccepted},       // +1
		{Actor: "a", Status: model.StatusAccepted},       // +0
		{Actor: "a", Note: "progress"},                   // +1
		{Actor: "a", Tags: []string{"x"}},                // +0
		{Actor: "a", Status: model.StatusInProgress},     // +1
	}
	wantDelta := []int{1, 0, 1, 0, 1}
	for i, step := range steps {
		updated, err := s.Update(c.ID, step)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := len(updated.History); got != prev+wantDelta[i] {
			t.Fatalf("step %d: history length = %d, want %d", i, got, prev+wantDelta[i])
		}
		prev = len(updated.History)
	}
}

func TestLinkMessage_FirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	if !s.LinkMessage(c.ID, "m1") {
		t.Fatal("first link should succeed")
	}
	if s.LinkMessage(c.ID, "m2") {
		t.Fatal("second link should be a no-op")
	}
	if got := s.Get(c.ID).RelatedMessageID; got != "m1" {
		t.Fatalf("relatedMessageID = %q, want m1", got)
	}
}

func TestLinkMessage_MissingContract(t *testing.T) {
	s := newTestStore(t)
	if s.LinkMessage("missing", "m1") {
		t.Fatal("link to missing contract should report false")
	}
}

func TestCountsByStatus(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create(CreateInput{Title: "A", Initiator: "x"})
	s.Create(CreateInput{Title: "B", Initiator: "x"})
	s.Update(a.ID, UpdateInput{Actor: "x", Status: model.StatusCompleted})

	counts := s.CountsByStatus()
	if counts[model.StatusProposed] != 1 || counts[model.StatusCompleted] != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestGet_ReturnsClone(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "cursor"})

	got := s.Get(c.ID)
	got.History = append(got.History, model.HistoryEntry{Note: "tamper"})
	got.Title = "changed"

	fresh := s.Get(c.ID)
	if len(fresh.History) != 1 || fresh.Title != "T" {
		t.Fatal("mutating a returned contract affected the store")
	}
}

func TestCreate_DueAt(t *testing.T) {
	s := newTestStore(t)
	due := time.Now().UTC().Add(24 * time.Hour)
	c, _ := s.Create(CreateInput{Title: "T", Initiator: "x", DueAt: &due})
	if c.DueAt == nil || !c.DueAt.Equal(due) {
		t.Fatalf("dueAt = %v, want %v", c.DueAt, due)
	}
}
