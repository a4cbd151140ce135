// Package sqlite provides a SQLite-backed task store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/youvisa/internal/sqlmigrate"
	"github.com/aretw0/youvisa/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists users, countries, tasks and documents in SQLite.
type Store struct {
	sqlDB *sql.DB
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

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite database file and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlmigrate.Apply(context.Background(), sqlDB, migrations.FS, ".", sqlmigrate.Question); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) AddUser(ctx context.Context, externalID, name, nationalID string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (external_id, name, national_id, created_at) VALUES (?, ?, ?, ?)`,
		externalID, name, nationalID, toMillis(s.clock()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %s: %w", externalID, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("add user: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUser(ctx context.Context, externalID string) (domain.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, external_id, name, national_id, created_at FROM users WHERE external_id = ?`,
		externalID,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %s: %w", externalID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, external_id, name, national_id, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) AddCountry(ctx context.Context, name string, required domain.Labels) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO countries (name, required_docs) VALUES (?, ?)`,
		name, required.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("country %s: %w", name, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("add country: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, required_docs FROM countries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

func (s *Store) GetCountryByName(ctx context.Context, name string) (domain.Country, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, required_docs FROM countries WHERE name = ?`, name)
	c, err := scanCountry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Country{}, fmt.Errorf("country %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Country{}, fmt.Errorf("get country: %w", err)
	}
	return c, nil
}

func (s *Store) CreateTask(ctx context.Context, userID, countryID int64) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO tasks (user_id, country_id, status, created_at) VALUES (?, ?, ?, ?)`,
		userID, countryID, string(domain.TaskInProgress), toMillis(s.clock()),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("task of user %d for country %d: %w", userID, countryID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("create task: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUserActiveTask(ctx context.Context, userID int64) (domain.ActiveTask, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT t.id, t.user_id, t.country_id, t.status, t.created_at, c.name, c.required_docs
		   FROM tasks t
		   JOIN countries c ON c.id = t.country_id
		  WHERE t.user_id = ? AND t.status != ?
		  ORDER BY t.created_at DESC, t.id DESC
		  LIMIT 1`,
		userID, string(domain.TaskCompleted),
	)
	var (
		at        domain.ActiveTask
		status    string
		createdAt int64
		required  string
	)
	err := row.Scan(&at.ID, &at.UserID, &at.CountryID, &status, &createdAt, &at.CountryName, &required)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActiveTask{}, fmt.Errorf("active task of user %d: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ActiveTask{}, fmt.Errorf("get active task: %w", err)
	}
	at.Status = domain.TaskStatus(status)
	at.CreatedAt = fromMillis(createdAt)
	at.RequiredDocs = domain.ParseLabels(required)
	return at, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), taskID)
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
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`,
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
	err = s.sqlDB.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, taskID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transition task status: %w", err)
	}
	return fmt.Errorf("task %d is %s, not %s: %w", taskID, current, from, domain.ErrConflict)
}

func (s *Store) AddDocument(ctx context.Context, taskID int64, docType, locator string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO documents (task_id, doc_type, locator, uploaded_at) VALUES (?, ?, ?, ?)`,
		taskID, docType, locator, toMillis(s.clock()),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("add document: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetTaskDocuments(ctx context.Context, taskID int64) ([]domain.Document, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, task_id, doc_type, locator, uploaded_at FROM documents WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get task documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(ctx context.Context, documentID int64) (domain.Document, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, task_id, doc_type, locator, uploaded_at FROM documents WHERE id = ?`,
		documentID,
	)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
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
	details, err := s.queryTaskDetails(ctx, ` WHERE t.id = ?`, taskID)
	if err != nil {
		return domain.TaskDetails{}, err
	}
	if len(details) == 0 {
		return domain.TaskDetails{}, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	return details[0], nil
}

func (s *Store) GetAllTaskDetails(ctx context.Context) ([]domain.TaskDetails, error) {
	return s.queryTaskDetails(ctx, ` ORDER BY t.id`)
}

// queryTaskDetails runs taskDetailsQuery followed by tail and attaches the documents.
func (s *Store) queryTaskDetails(ctx context.Context, tail string, args ...any) ([]domain.TaskDetails, error) {
	rows, err := s.sqlDB.QueryContext(ctx, taskDetailsQuery+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("get task details: %w", err)
	}

	var details []domain.TaskDetails
	for rows.Next() {
		var (
			d                     domain.TaskDetails
			status, required      string
			taskCreated, userSeen int64
		)
		if err := rows.Scan(
			&d.Task.ID, &d.Task.UserID, &d.Task.CountryID, &status, &taskCreated,
			&d.User.ExternalID, &d.User.Name, &d.User.NationalID, &userSeen,
			&d.Country.Name, &required,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task details: %w", err)
		}
		d.Task.Status = domain.TaskStatus(status)
		d.Task.CreatedAt = fromMillis(taskCreated)
		d.User.ID = d.Task.UserID
		d.User.CreatedAt = fromMillis(userSeen)
		d.Country.ID = d.Task.CountryID
		d.Country.RequiredDocs = domain.ParseLabels(required)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The pool holds a single connection, so the cursor must be released before
	// the per-task document queries below.
	rows.Close()

	for i := range details {
		docs, err := s.GetTaskDocuments(ctx, details[i].Task.ID)
		if err != nil {
			return nil, err
		}
		details[i].Documents = docs
	}
	return details, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.NationalID, &createdAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

func scanCountry(row scanner) (domain.Country, error) {
	var (
		c        domain.Country
		required string
	)
	if err := row.Scan(&c.ID, &c.Name, &required); err != nil {
		return domain.Country{}, err
	}
	c.RequiredDocs = domain.ParseLabels(required)
	return c, nil
}

func scanDocument(row scanner) (domain.Document, error) {
	var (
		d          domain.Document
		uploadedAt int64
	)
	if err := row.Scan(&d.ID, &d.TaskID, &d.DocType, &d.Locator, &uploadedAt); err != nil {
		return domain.Document{}, err
	}
	d.UploadedAt = fromMillis(uploadedAt)
	return d, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

var _ ports.TaskStore = (*Store)(nil)
