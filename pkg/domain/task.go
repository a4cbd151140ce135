package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle status of a visa application.
type TaskStatus string

const (
	// TaskPending is reserved; the intake flow never produces it.
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReady      TaskStatus = "READY"
	// TaskCompleted is only reached through an external approval step.
	TaskCompleted TaskStatus = "COMPLETED"
)

// ParseTaskStatus validates a persisted or user-supplied status.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskPending, TaskInProgress, TaskReady, TaskCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Active reports whether the task still counts as the user's open application.
func (s TaskStatus) Active() bool {
	return s != TaskCompleted
}

// Task is one user's application for one country's visa.
type Task struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	CountryID int64      `json:"country_id"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// ActiveTask is a task joined with the country it targets.
type ActiveTask struct {
	Task
	CountryName  string `json:"country_name"`
	RequiredDocs Labels `json:"required_docs"`
}

// TaskDetails is the read-only reporting view of a task.
type TaskDetails struct {
	Task      Task       `json:"task"`
	User      User       `json:"user"`
	Country   Country    `json:"country"`
	Documents []Document `json:"documents"`
}
