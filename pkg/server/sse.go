package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/daviddao/agentbridge/pkg/model"
)

// handleEvents streams the broadcast feed as server-sent events. New
// subscribers first receive the retained replay buffer, then live
// events until they disconnect. A Last-Event-ID header trims replay
// to the events after the one the client already saw.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.bridge.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	replay := trimReplay(sub.Replay, r.Header.Get("Last-Event-ID"))
	for _, ev := range replay {
		if err := writeSSE(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// trimReplay drops events up to and including lastID. An unknown or
// empty lastID leaves the replay untouched.
func trimReplay(replay []model.Event, lastID string) []model.Event {
	if lastID == "" {
		return replay
	}
	for i, ev := range replay {
		if ev.ID == lastID {
			return replay[i+1:]
		}
	}
	return replay
}

func writeSSE(w http.ResponseWriter, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", ev.Type, ev.ID, payload)
	return err
}
