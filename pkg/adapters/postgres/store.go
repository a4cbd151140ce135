// Package postgres provides a PostgreSQL-backed task store over database/sql
// and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/youvisa/internal/sqlmigrate"
	"github.com/aretw0/youvisa/pkg/adapters/postgres/migrations"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store persists users, countries, tasks and documents in PostgreSQL.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for created_at / uploaded_at.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Open connects with the given DSN and applies embedded migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle and applies embedded migrations.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if err := sqlmigrate.Apply(ctx, db, migrations.FS, ".", sqlmigrate.Dollar); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func (s *Store) AddUser(ctx context.Context, externalID, name, nationalID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (external_id, name, national_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		externalID, name, nationalID, s.now(),
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return 0, fmt.Errorf("user %s: %w", externalID, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("add user: %w", err)
	}
	return id, nil
}

func (s *Store) GetUser(ctx context.Context, externalID string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, national_id, created_at FROM users WHERE external_id = $1`,
		externalID,
	).Scan(&u.ID, &u.ExternalID, &u.Name, &u.NationalID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %s: %w", externalID, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, external_id, name, national_id, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.Name, &u.NationalID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) AddCountry(ctx context.Context, name string, required domain.Labels) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO countries (name, required_docs) VALUES ($1, $2) RETURNING id`,
		name, required.String(),
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return 0, fmt.Errorf("country %s: %w", name, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("add country: %w", err)
	}
	return id, nil
}

func (s *Store) GetCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, required_docs FROM countries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		var (
			c        domain.Country
			required string
		)
		if err := rows.Scan(&c.ID, &c.Name, &required); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c.RequiredDocs = domain.ParseLabels(required)
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

func (s *Store) GetCountryByName(ctx context.Context, name string) (domain.Country, error) {
	var (
		c        domain.Country
		required string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, required_docs FROM countries WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &required)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Country{}, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
		}
		return domain.Country{}, fmt.Errorf("get country: %w", err)
	}
	c.RequiredDocs = domain.ParseLabels(required)
	return c, nil
}

func (s *Store) CreateTask(ctx context.Context, userID, countryID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, country_id, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, countryID, string(domain.TaskInProgress), s.now(),
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return 0, fmt.Errorf("task of user %d for country %d: %w", userID, countryID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserActiveTask(ctx context.Context, userID int64) (domain.ActiveTask, error) {
	var (
		at       domain.ActiveTask
		status   string
		required string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.user_id, t.country_id, t.status, t.created_at, c.name, c.required_docs
		   FROM tasks t
		   JOIN countries c ON c.id = t.country_id
		  WHERE t.user_id = $1 AND t.status <> $2
		  ORDER BY t.created_at DESC, t.id DESC
		  LIMIT 1`,
		userID, string(domain.TaskCompleted),
	).Scan(&at.ID, &at.UserID, &at.CountryID, &status, &at.CreatedAt, &at.CountryName, &required)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ActiveTask{}, fmt.Errorf("active task of user %d: %w", userID, domain.ErrNotFound)
		}
		return domain.ActiveTask{}, fmt.Errorf("get active task: %w", err)
	}
	at.Status = domain.TaskStatus(status)
	at.RequiredDocs = domain.ParseLabels(required)
	return at, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, string(status), taskID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) TransitionTaskStatus(ctx context.Context, taskID int64, from, to domain.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), taskID, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition task status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, taskID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transition task status: %w", err)
	}
	return fmt.Errorf("task %d is %s, not %s: %w", taskID, current, from, domain.ErrConflict)
}

func (s *Store) AddDocument(ctx context.Context, taskID int64, docType, locator string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (task_id, doc_type, locator, uploaded_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		taskID, docType, locator, s.now(),
	).Scan(&id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return 0, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("add document: %w", err)
	}
	return id, nil
}

func (s *Store) GetTaskDocuments(ctx context.Context, taskID int64) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, doc_type, locator, uploaded_at FROM documents WHERE task_id = $1 ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get task documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.TaskID, &d.DocType, &d.Locator, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(ctx context.Context, documentID int64) (domain.Document, error) {
	var d domain.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, doc_type, locator, uploaded_at FROM documents WHERE id = $1`,
		documentID,
	).Scan(&d.ID, &d.TaskID, &d.DocType, &d.Locator, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
		}
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

const taskDetailsQuery = `SELECT t.id, t.user_id, t.country_id, t.status, t.created_at,
        u.external_id, u.name, u.national_id, u.created_at,
        c.name, c.required_docs
   FROM tasks t
   JOIN users u ON u.id = t.user_id
   JOIN countries c ON c.id = t.country_id`

func (s *Store) GetTaskDetails(ctx context.Context, taskID int64) (domain.TaskDetails, error) {
	details, err := s.queryTasks(ctx, ` WHERE t.id = $1`, taskID)
	if err != nil {
		return domain.TaskDetails{}, err
	}
	if len(details) == 0 {
		return domain.TaskDetails{}, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	d := details[0]
	if d.Documents, err = s.GetTaskDocuments(ctx, taskID); err != nil {
		return domain.TaskDetails{}, err
	}
	return d, nil
}

func (s *Store) GetAllTaskDetails(ctx context.Context) ([]domain.TaskDetails, error) {
	details, err := s.queryTasks(ctx, ` ORDER BY t.id`)
	if err != nil {
		return nil, err
	}
	byTask := make(map[int64]int, len(details))
	for i, d := range details {
		byTask[d.Task.ID] = i
	}

	docRows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, doc_type, locator, uploaded_at FROM documents ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var d domain.Document
		if err := docRows.Scan(&d.ID, &d.TaskID, &d.DocType, &d.Locator, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if i, ok := byTask[d.TaskID]; ok {
			details[i].Documents = append(details[i].Documents, d)
		}
	}
	return details, docRows.Err()
}

// queryTasks runs taskDetailsQuery followed by tail, without documents.
func (s *Store) queryTasks(ctx context.Context, tail string, args ...any) ([]domain.TaskDetails, error) {
	rows, err := s.db.QueryContext(ctx, taskDetailsQuery+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("get task details: %w", err)
	}
	defer rows.Close()

	var details []domain.TaskDetails
	for rows.Next() {
		var (
			d                domain.TaskDetails
			status, required string
		)
		if err := rows.Scan(
			&d.Task.ID, &d.Task.UserID, &d.Task.CountryID, &status, &d.Task.CreatedAt,
			&d.User.ExternalID, &d.User.Name, &d.User.NationalID, &d.User.CreatedAt,
			&d.Country.Name, &required,
		); err != nil {
			return nil, fmt.Errorf("scan task details: %w", err)
		}
		d.Task.Status = domain.TaskStatus(status)
		d.User.ID = d.Task.UserID
		d.Country.ID = d.Task.CountryID
		d.Country.RequiredDocs = domain.ParseLabels(required)
		details = append(details, d)
	}
	return details, rows.Err()
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ ports.TaskStore = (*Store)(nil)
