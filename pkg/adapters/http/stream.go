package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/domain"
)

// StreamManager fans task status changes out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan domain.TaskEvent]string // channel -> user filter ("" = all)
	clock       func() time.Time
	logger      *slog.Logger
}

// NewStreamManager creates a StreamManager. A nil logger discards its logs.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan domain.TaskEvent]string),
		clock:       time.Now,
		logger:      logger,
	}
}

// Subscribe registers a listener for events of userID, or of everyone when
// userID is empty. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(userID string) (<-chan domain.TaskEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.TaskEvent, 10)
	sm.subscribers[ch] = userID

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Publish delivers ev to every matching subscriber. Slow subscribers lose events.
func (sm *StreamManager) Publish(ev domain.TaskEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = sm.clock().UTC()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch, filter := range sm.subscribers {
		if filter != "" && filter != ev.UserID {
			continue
		}
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "task_id", ev.TaskID, "user_id", ev.UserID)
		}
	}
}

// Hooks publishes the engine's task status changes.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskStatus: func(ctx context.Context, ev *domain.TaskEvent) {
			sm.Publish(*ev)
		},
	}
}

// SubscribeTaskEvents handles GET /v1/tasks/events (SSE), optionally
// restricted to one user with ?user_id=.
func (s *Server) SubscribeTaskEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		s.logger.Error("SubscribeTaskEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	userID := r.URL.Query().Get("user_id")
	ch, cancel := s.Streams.Subscribe(userID)
	defer cancel()
	s.logger.Debug("SSE: Client subscribed", "user_id", userID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: task\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
