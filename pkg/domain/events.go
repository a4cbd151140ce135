package domain

import (
	"context"
	"time"
)

// StepEvent records a session moving from one step to another.
type StepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	From      Step      `json:"from"`
	To        Step      `json:"to"`
	Trigger   EventKind `json:"trigger"`
}

// ClassificationEvent records one classifier call.
type ClassificationEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id"`
	TaskID    int64         `json:"task_id"`
	Outcome   Outcome       `json:"outcome"`
	Duration  time.Duration `json:"duration"`
}

// TaskEvent records a task status change made by the workflow.
type TaskEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	UserID    string     `json:"user_id"`
	TaskID    int64      `json:"task_id"`
	Status    TaskStatus `json:"status"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStep           func(context.Context, *StepEvent)
	OnClassification func(context.Context, *ClassificationEvent)
	OnTaskStatus     func(context.Context, *TaskEvent)
}

// MergeHooks combines several hook sets; each callback runs in the given order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range sets {
		merged.OnStep = chain(merged.OnStep, h.OnStep)
		merged.OnClassification = chain(merged.OnClassification, h.OnClassification)
		merged.OnTaskStatus = chain(merged.OnTaskStatus, h.OnTaskStatus)
	}
	return merged
}

func chain[E any](first, second func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e *E) {
		first(ctx, e)
		second(ctx, e)
	}
}
