package event

import (
	"fmt"
	"testing"

	"github.com/daviddao/agentbridge/pkg/model"
)

func TestPublish_AssignsIDAndTimestamp(t *testing.T) {
	b := New(10)
	ev := b.Publish(model.EventLockCreated, map[string]string{"resource": "a.go"})
	if ev.ID == "" {
		t.Fatal("published event has empty ID")
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("published event has zero timestamp")
	}
	if ev.Type != model.EventLockCreated {
		t.Fatalf("event type = %q, want %q", ev.Type, model.EventLockCreated)
	}
}

func TestSnapshot_Empty(t *testing.T) {
	b := New(10)
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("empty broadcaster snapshot has %d events, want 0", len(got))
	}
}

func TestSnapshot_PartialFill(t *testing.T) {
	b := New(10)
	for i := 0; i < 4; i++ {
		b.Publish("test.tick", i)
	}
	got := b.Snapshot()
	if len(got) != 4 {
		t.Fatalf("snapshot has %d events, want 4", len(got))
	}
	for i, ev := range got {
		if ev.Data != i {
			t.Fatalf("snapshot[%d].Data = %v, want %d", i, ev.Data, i)
		}
	}
}

func TestSnapshot_WrapsInChronologicalOrder(t *testing.T) {
	b := New(5)
	for i := 0; i < 8; i++ {
		b.Publish("test.tick", i)
	}
	got := b.Snapshot()
	if len(got) != 5 {
		t.Fatalf("snapshot has %d events, want 5", len(got))
	}
	// Events 3..7 survive, oldest first.
	for i, ev := range got {
		if ev.Data != i+3 {
			t.Fatalf("snapshot[%d].Data = %v, want %d", i, ev.Data, i+3)
		}
	}
}

func TestSnapshot_ExactlyFull(t *testing.T) {
	b := New(5)
	for i := 0; i < 5; i++ {
		b.Publish("test.tick", i)
	}
	got := b.Snapshot()
	if len(got) != 5 {
		t.Fatalf("snapshot has %d events, want 5", len(got))
	}
	if got[0].Data != 0 || got[4].Data != 4 {
		t.Fatalf("snapshot order wrong: first=%v last=%v", got[0].Data, got[4].Data)
	}
}

func TestSubscribe_ReplayThenLive(t *testing.T) {
	b := New(10)
	for i := 0; i < 3; i++ {
		b.Publish("test.tick", i)
	}

	sub := b.Subscribe()
	defer sub.Close()

	if len(sub.Replay) != 3 {
		t.Fatalf("replay has %d events, want 3", len(sub.Replay))
	}

	b.Publish("test.tick", 3)
	select {
	case ev := <-sub.C:
		if ev.Data != 3 {
			t.Fatalf("live event data = %v, want 3", ev.Data)
		}
	default:
		t.Fatal("no live event delivered")
	}
}

func TestSubscribe_NoGapNoDuplicate(t *testing.T) {
	b := New(100)
	for i := 0; i < 10; i++ {
		b.Publish("test.tick", i)
	}
	sub := b.Subscribe()
	defer sub.Close()
	for i := 10; i < 20; i++ {
		b.Publish("test.tick", i)
	}

	seen := make(map[any]bool)
	for _, ev := range sub.Replay {
		seen[ev.Data] = true
	}
	for len(sub.C) > 0 {
		seen[(<-sub.C).Data] = true
	}
	for i := 0; i < 20; i++ {
		if !seen[i] {
			t.Fatalf("event %d neither replayed nor delivered live", i)
		}
	}
	if len(seen) != 20 {
		t.Fatalf("saw %d distinct events, want 20", len(seen))
	}
}

func TestClose_StopsDelivery(t *testing.T) {
	b := New(10)
	sub := b.Subscribe()
	sub.Close()
	sub.Close() // idempotent

	b.Publish("test.tick", 1)
	if len(sub.C) != 0 {
		t.Fatal("closed subscription received an event")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("subscriber count = %d after close, want 0", n)
	}
}

func TestPublish_SlowSubscriberIsolated(t *testing.T) {
	b := New(10)
	slow := b.Subscribe()
	defer slow.Close()
	fast := b.Subscribe()
	defer fast.Close()

	// Overflow the slow subscriber's channel without draining it.
	for i := 0; i < subscriberChannelSize+50; i++ {
		b.Publish("test.tick", i)
	}

	// The fast subscriber's channel also overflowed here since nothing
	// drained it, but Publish must not have blocked; the total count is
	// the proof that emission proceeded.
	if got := b.Total(); got != uint64(subscriberChannelSize+50) {
		t.Fatalf("total = %d, want %d", got, subscriberChannelSize+50)
	}
}

func TestDefaultCapacity(t *testing.T) {
	b := New(0)
	for i := 0; i < DefaultCapacity+20; i++ {
		b.Publish("test.tick", fmt.Sprintf("e%d", i))
	}
	if got := len(b.Snapshot()); got != DefaultCapacity {
		t.Fatalf("snapshot has %d events, want %d", got, DefaultCapacity)
	}
}
