package ports

import (
	"context"

	"github.com/aretw0/youvisa/pkg/domain"
)

// TaskStore persists the workflow's users, countries, tasks and documents.
// It is the single source of truth; sessions are rebuilt from it.
//
// Implementations return domain.ErrAlreadyExists for unique-key violations and
// domain.ErrNotFound for missing rows, wrapped or bare, so callers can use errors.Is.
type TaskStore interface {
	// AddUser registers a user. Returns domain.ErrAlreadyExists if externalID is taken.
	AddUser(ctx context.Context, externalID, name, nationalID string) (int64, error)

	// GetUser looks a user up by external id.
	GetUser(ctx context.Context, externalID string) (domain.User, error)

	// ListUsers returns all users in registration order.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// AddCountry registers a destination. Returns domain.ErrAlreadyExists if name is taken.
	AddCountry(ctx context.Context, name string, required domain.Labels) (int64, error)

	// GetCountries returns all countries in insertion order.
	GetCountries(ctx context.Context) ([]domain.Country, error)

	// GetCountryByName returns the country whose name matches exactly.
	GetCountryByName(ctx context.Context, name string) (domain.Country, error)

	// CreateTask inserts a new IN_PROGRESS task. It does not look for an existing active task.
	CreateTask(ctx context.Context, userID, countryID int64) (int64, error)

	// GetUserActiveTask returns the most recently created task of the user whose
	// status is not COMPLETED, joined with its country.
	GetUserActiveTask(ctx context.Context, userID int64) (domain.ActiveTask, error)

	// UpdateTaskStatus sets the status of a task.
	UpdateTaskStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error

	// TransitionTaskStatus moves a task from one status to another in a single
	// conditional write. Returns domain.ErrNotFound for a missing task and
	// domain.ErrConflict when the task is not in status from.
	TransitionTaskStatus(ctx context.Context, taskID int64, from, to domain.TaskStatus) error

	// AddDocument records a classified upload against a task.
	AddDocument(ctx context.Context, taskID int64, docType, locator string) (int64, error)

	// GetTaskDocuments returns the documents of a task in upload order.
	GetTaskDocuments(ctx context.Context, taskID int64) ([]domain.Document, error)

	// GetDocument returns a single document by id.
	GetDocument(ctx context.Context, documentID int64) (domain.Document, error)

	// GetTaskDetails returns one task with its user, country and documents.
	GetTaskDetails(ctx context.Context, taskID int64) (domain.TaskDetails, error)

	// GetAllTaskDetails returns every task with its user, country and documents.
	// Read-only; used by reporting.
	GetAllTaskDetails(ctx context.Context) ([]domain.TaskDetails, error)
}
