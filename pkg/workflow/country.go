package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/completion"
	"github.com/aretw0/youvisa/pkg/domain"
)

// onCountry resolves the chosen destination and opens (or resumes) a task.
func (e *Engine) onCountry(ctx context.Context, s *domain.Session, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	if Normalize(ev.Text) == statusCommand {
		return e.status(ctx, s.UserID, r)
	}

	countries, err := e.store.GetCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	country, ok := MatchCountry(ev.Text, countries, e.matchMode)
	if !ok {
		country, err = e.store.GetCountryByName(ctx, strings.TrimSpace(ev.Text))
		switch {
		case err == nil:
			ok = true
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("failed to look up country: %w", err)
		}
	}
	if !ok {
		if len(countries) == 0 {
			r.Say(msgNoCountries)
			return terminal(s.UserID), nil
		}
		r.Say(msgUnknownCountry + "\n\n" + countryList(countries))
		return s, nil
	}

	user, err := e.store.GetUser(ctx, s.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		r.Say(msgRestart)
		return terminal(s.UserID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if e.policy != PolicyAllow {
		active, found, err := e.activeTask(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case found && e.policy == PolicyForbid:
			r.Say(taskBlocked(active.CountryName))
			return e.resume(ctx, s, active, r)
		case found && e.policy == PolicyReuse && active.CountryID == country.ID:
			return e.resume(ctx, s, active, r)
		}
	}
	return e.openTask(ctx, s, user, country, r)
}

func (e *Engine) openTask(ctx context.Context, s *domain.Session, user domain.User, country domain.Country, r *domain.Reply) (*domain.Session, error) {
	id, err := e.store.CreateTask(ctx, user.ID, country.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	e.logger.Info("Task created", "user_id", s.UserID, "task_id", id, "country", country.Name)
	e.emitTaskStatus(ctx, s.UserID, id, domain.TaskInProgress)
	r.TaskID, r.TaskStatus = id, domain.TaskInProgress

	task := domain.ActiveTask{
		Task: domain.Task{
			ID:        id,
			UserID:    user.ID,
			CountryID: country.ID,
			Status:    domain.TaskInProgress,
		},
		CountryName:  country.Name,
		RequiredDocs: country.RequiredDocs,
	}

	// A country without requirements is complete on arrival.
	if len(task.RequiredDocs) == 0 {
		if err := e.markReady(ctx, s.UserID, id, r); err != nil {
			return nil, err
		}
		return terminal(s.UserID), nil
	}

	s.Bind(task)
	r.Say(taskOpened(country.Name, country.RequiredDocs))
	return s, nil
}

// resume binds the session to an existing active task and tells the user
// what is still missing.
func (e *Engine) resume(ctx context.Context, s *domain.Session, task domain.ActiveTask, r *domain.Reply) (*domain.Session, error) {
	docs, err := e.store.GetTaskDocuments(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	res := completion.EvaluateDocuments(task.RequiredDocs, docs)
	r.TaskID, r.TaskStatus = task.ID, task.Status

	if res.Ready() {
		r.Say(statusSummary(task, nil))
		return terminal(s.UserID), nil
	}
	s.Bind(task)
	r.Say(taskResumed(task.CountryName, res.Missing))
	return s, nil
}

// status reports on the user's active task and ends the conversation.
func (e *Engine) status(ctx context.Context, userID string, r *domain.Reply) (*domain.Session, error) {
	user, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		r.Say(msgNoActiveTask)
		return terminal(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	task, found, err := e.activeTask(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		r.Say(msgNoActiveTask)
		return terminal(userID), nil
	}

	docs, err := e.store.GetTaskDocuments(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	res := completion.EvaluateDocuments(task.RequiredDocs, docs)
	r.TaskID, r.TaskStatus = task.ID, task.Status
	r.Say(statusSummary(task, res.Missing))
	return terminal(userID), nil
}

func (e *Engine) activeTask(ctx context.Context, userID int64) (domain.ActiveTask, bool, error) {
	task, err := e.store.GetUserActiveTask(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ActiveTask{}, false, nil
	}
	if err != nil {
		return domain.ActiveTask{}, false, fmt.Errorf("failed to look up active task: %w", err)
	}
	return task, true, nil
}

func (e *Engine) markReady(ctx context.Context, userID string, taskID int64, r *domain.Reply) error {
	if err := e.store.UpdateTaskStatus(ctx, taskID, domain.TaskReady); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	e.logger.Info("Task ready", "user_id", userID, "task_id", taskID)
	e.emitTaskStatus(ctx, userID, taskID, domain.TaskReady)
	r.TaskID, r.TaskStatus = taskID, domain.TaskReady
	r.Say(msgAllReceived)
	return nil
}
