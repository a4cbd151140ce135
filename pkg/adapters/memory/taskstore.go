package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/youvisa/pkg/domain"
)

// TaskStore implements ports.TaskStore in memory.
// Rows are kept in insertion order; ids start at 1. Safe for concurrent use.
type TaskStore struct {
	mu        sync.RWMutex
	users     []domain.User
	countries []domain.Country
	tasks     []domain.Task
	documents []domain.Document
	clock     func() time.Time
}

// TaskStoreOption configures a TaskStore.
type TaskStoreOption func(*TaskStore)

// WithClock sets the time source used for created_at / uploaded_at.
func WithClock(clock func() time.Time) TaskStoreOption {
	return func(s *TaskStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore(opts ...TaskStoreOption) *TaskStore {
	s := &TaskStore{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskStore) now() time.Time {
	return s.clock().UTC()
}

func (s *TaskStore) AddUser(ctx context.Context, externalID, name, nationalID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ExternalID == externalID {
			return 0, fmt.Errorf("user %s: %w", externalID, domain.ErrAlreadyExists)
		}
	}
	u := domain.User{
		ID:         int64(len(s.users) + 1),
		ExternalID: externalID,
		Name:       name,
		NationalID: nationalID,
		CreatedAt:  s.now(),
	}
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *TaskStore) GetUser(ctx context.Context, externalID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("user %s: %w", externalID, domain.ErrNotFound)
}

func (s *TaskStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.User(nil), s.users...), nil
}

func (s *TaskStore) AddCountry(ctx context.Context, name string, required domain.Labels) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.countries {
		if c.Name == name {
			return 0, fmt.Errorf("country %s: %w", name, domain.ErrAlreadyExists)
		}
	}
	c := domain.Country{
		ID:           int64(len(s.countries) + 1),
		Name:         name,
		RequiredDocs: append(domain.Labels(nil), required...),
	}
	s.countries = append(s.countries, c)
	return c.ID, nil
}

func (s *TaskStore) GetCountries(ctx context.Context) ([]domain.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Country, len(s.countries))
	for i, c := range s.countries {
		out[i] = copyCountry(c)
	}
	return out, nil
}

func (s *TaskStore) GetCountryByName(ctx context.Context, name string) (domain.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.countries {
		if c.Name == name {
			return copyCountry(c), nil
		}
	}
	return domain.Country{}, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
}

func (s *TaskStore) CreateTask(ctx context.Context, userID, countryID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByID(userID) == nil {
		return 0, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	if s.countryByID(countryID) == nil {
		return 0, fmt.Errorf("country %d: %w", countryID, domain.ErrNotFound)
	}
	t := domain.Task{
		ID:        int64(len(s.tasks) + 1),
		UserID:    userID,
		CountryID: countryID,
		Status:    domain.TaskInProgress,
		CreatedAt: s.now(),
	}
	s.tasks = append(s.tasks, t)
	return t.ID, nil
}

func (s *TaskStore) GetUserActiveTask(ctx context.Context, userID int64) (domain.ActiveTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Task
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.UserID != userID || !t.Status.Active() {
			continue
		}
		// Later ids were created later, so ties on CreatedAt resolve to the newest row.
		if found == nil || !t.CreatedAt.Before(found.CreatedAt) {
			found = t
		}
	}
	if found == nil {
		return domain.ActiveTask{}, fmt.Errorf("active task of user %d: %w", userID, domain.ErrNotFound)
	}
	c := s.countryByID(found.CountryID)
	return domain.ActiveTask{
		Task:         *found,
		CountryName:  c.Name,
		RequiredDocs: append(domain.Labels(nil), c.RequiredDocs...),
	}, nil
}

func (s *TaskStore) UpdateTaskStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
}

func (s *TaskStore) TransitionTaskStatus(ctx context.Context, taskID int64, from, to domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.taskByID(taskID)
	if t == nil {
		return fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	if t.Status != from {
		return fmt.Errorf("task %d is %s, not %s: %w", taskID, t.Status, from, domain.ErrConflict)
	}
	t.Status = to
	return nil
}

func (s *TaskStore) AddDocument(ctx context.Context, taskID int64, docType, locator string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taskByID(taskID) == nil {
		return 0, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	d := domain.Document{
		ID:         int64(len(s.documents) + 1),
		TaskID:     taskID,
		DocType:    docType,
		Locator:    locator,
		UploadedAt: s.now(),
	}
	s.documents = append(s.documents, d)
	return d.ID, nil
}

func (s *TaskStore) GetTaskDocuments(ctx context.Context, taskID int64) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documentsOf(taskID), nil
}

func (s *TaskStore) GetDocument(ctx context.Context, documentID int64) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents {
		if d.ID == documentID {
			return d, nil
		}
	}
	return domain.Document{}, fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
}

func (s *TaskStore) GetTaskDetails(ctx context.Context, taskID int64) (domain.TaskDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.taskByID(taskID)
	if t == nil {
		return domain.TaskDetails{}, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	return s.detailsOf(*t), nil
}

func (s *TaskStore) GetAllTaskDetails(ctx context.Context) ([]domain.TaskDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TaskDetails, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, s.detailsOf(t))
	}
	return out, nil
}

// Helpers below expect s.mu to be held.

func (s *TaskStore) userByID(id int64) *domain.User {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i]
		}
	}
	return nil
}

func (s *TaskStore) countryByID(id int64) *domain.Country {
	for i := range s.countries {
		if s.countries[i].ID == id {
			return &s.countries[i]
		}
	}
	return nil
}

func (s *TaskStore) taskByID(id int64) *domain.Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

func (s *TaskStore) detailsOf(t domain.Task) domain.TaskDetails {
	return domain.TaskDetails{
		Task:      t,
		User:      *s.userByID(t.UserID),
		Country:   copyCountry(*s.countryByID(t.CountryID)),
		Documents: s.documentsOf(t.ID),
	}
}

func (s *TaskStore) documentsOf(taskID int64) []domain.Document {
	var out []domain.Document
	for _, d := range s.documents {
		if d.TaskID == taskID {
			out = append(out, d)
		}
	}
	return out
}

func copyCountry(c domain.Country) domain.Country {
	c.RequiredDocs = append(domain.Labels(nil), c.RequiredDocs...)
	return c
}
