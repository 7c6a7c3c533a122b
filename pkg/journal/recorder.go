package journal

import (
	"context"
	"log/slog"

	"github.com/daviddao/agentbridge/pkg/event"
)

// Recorder drains an event subscription into the journal. A failed
// append is logged and the event dropped; journaling never propagates
// failure back to the broadcast path.
type Recorder struct {
	journal *Journal
	logger  *slog.Logger
}

// NewRecorder creates a recorder writing to the journal. A nil logger
// means slog.Default().
func NewRecorder(j *Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{journal: j, logger: logger}
}

// Run journals the subscription's replay backlog and then its live
// events until the context is cancelled. It closes the subscription on
// exit.
func (r *Recorder) Run(ctx context.Context, sub *event.Subscription) {
	defer sub.Close()

	for _, ev := range sub.Replay {
		r.append(ev.ID, func() error { _, err := r.journal.Append(ev); return err })
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C:
			r.append(ev.ID, func() error { _, err := r.journal.Append(ev); return err })
		}
	}
}

func (r *Recorder) append(eventID string, fn func() error) {
	if err := fn(); err != nil {
		r.logger.Error("journal append failed, event dropped",
			"event_id", eventID,
			"error", err,
		)
	}
}
