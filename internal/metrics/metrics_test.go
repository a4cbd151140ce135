package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks_RecordEvents(t *testing.T) {
	m := New()
	hooks := m.Hooks(logging.NewNop())
	ctx := context.Background()

	hooks.OnStep(ctx, &domain.StepEvent{UserID: "u", From: domain.StepNone, To: domain.StepAwaitingName})
	hooks.OnClassification(ctx, &domain.ClassificationEvent{Outcome: domain.OutcomeUnknown, Duration: time.Second})
	hooks.OnClassification(ctx, &domain.ClassificationEvent{Outcome: domain.OutcomeError, Duration: time.Second})
	hooks.OnTaskStatus(ctx, &domain.TaskEvent{TaskID: 1, Status: domain.TaskReady})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("none", "awaiting_name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskStatus.WithLabelValues("READY")))
}

func TestObserveEvent(t *testing.T) {
	m := New()
	m.ObserveEvent(domain.EventText, nil)
	m.ObserveEvent(domain.EventText, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("text", "error")))
}

func TestObserveEvent_UnknownKindsShareOneLabel(t *testing.T) {
	m := New()
	m.ObserveEvent("sticker", errors.New("invalid event"))
	m.ObserveEvent("x-"+domain.EventKind(strings.Repeat("a", 64)), errors.New("invalid event"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("invalid", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.events))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveEvent(domain.EventStart, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "youvisa_events_total")
}
