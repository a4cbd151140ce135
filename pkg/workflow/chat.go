package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
)

var errEmptyAnswer = errors.New("assistant returned an empty answer")

// chat answers free text with the assistant. A failing or missing assistant
// never fails the event: the user gets the fixed fallback instead.
func (e *Engine) chat(ctx context.Context, ev domain.Event, s *domain.Session, r *domain.Reply) error {
	cc, err := e.chatContext(ctx, ev.UserID, s)
	if err != nil {
		e.logger.Warn("Chat context unavailable", "user_id", ev.UserID, "err", err)
		cc = nil
	}
	if cc != nil && s.HasTask() {
		r.TaskID, r.TaskStatus = s.TaskID, domain.TaskInProgress
	}

	answer, err := e.ask(ctx, ev.Text, cc)
	if err != nil {
		e.logger.Warn("Assistant unavailable",
			"kind", "assistant_unavailable",
			"user_id", ev.UserID,
			"err", err,
		)
		r.Say(msgAssistantDown)
		return nil
	}
	r.Say(answer)
	return nil
}

func (e *Engine) ask(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
	if e.assistant == nil {
		return "", errors.New("no assistant configured")
	}
	actx, cancel := context.WithTimeout(ctx, e.assistantTimeout)
	defer cancel()

	answer, err := e.assistant.Reply(actx, text, cc)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errEmptyAnswer
	}
	return answer, nil
}

// chatContext describes the user's application to the assistant, preferring
// what the session already knows. Returns nil when the user has no active task.
func (e *Engine) chatContext(ctx context.Context, userID string, s *domain.Session) (*domain.ChatContext, error) {
	var task domain.ActiveTask
	if s.HasTask() {
		task = domain.ActiveTask{
			Task:         domain.Task{ID: s.TaskID},
			CountryName:  s.CountryName,
			RequiredDocs: s.RequiredDocs,
		}
	} else {
		user, err := e.store.GetUser(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		var found bool
		task, found, err = e.activeTask(ctx, user.ID)
		if err != nil || !found {
			return nil, err
		}
	}

	docs, err := e.store.GetTaskDocuments(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return &domain.ChatContext{
		CountryName:  task.CountryName,
		RequiredDocs: task.RequiredDocs,
		UploadedDocs: domain.DocTypes(docs),
	}, nil
}
