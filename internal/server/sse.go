package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/resume-live/internal/feed"
)

// feedHeartbeat keeps idle feed connections open through proxies.
const feedHeartbeat = 25 * time.Second

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteChange sends a feed change as a "change" event.
func (s *SSEWriter) WriteChange(c feed.Change) error {
	return s.WriteEvent("change", c)
}

// WriteHeartbeat sends a comment line that clients ignore.
func (s *SSEWriter) WriteHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// feedFilter reads the subscription filter from the query string.
func feedFilter(r *http.Request) feed.Filter {
	q := r.URL.Query()
	return feed.Filter{Table: q.Get("table"), Target: q.Get("target")}
}

// handleFeedSSE streams feed changes as Server-Sent Events. The first event
// is a resync so the client loads current state before applying changes.
func (s *Server) handleFeedSSE(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub := s.hub.Subscribe(feedFilter(r))
	defer sub.Unsubscribe()

	w.WriteHeader(http.StatusOK)
	if err := sse.WriteChange(feed.Change{Type: feed.EventResync}); err != nil {
		return
	}

	heartbeat := time.NewTicker(feedHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.WriteHeartbeat(); err != nil {
				return
			}
		case c, ok := <-sub.C():
			if !ok {
				return
			}
			if err := sse.WriteChange(c); err != nil {
				return
			}
		}
	}
}
