package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/youvisa/pkg/completion"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

var errNoClassifier = errors.New("no classifier configured")

// intake stores, classifies and records one uploaded document, then
// re-evaluates the task. Rejected uploads never reach the task store.
func (e *Engine) intake(ctx context.Context, s *domain.Session, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	r.TaskID, r.TaskStatus = s.TaskID, domain.TaskInProgress

	att := ev.Attachment
	if att == nil || len(att.Content) == 0 {
		r.Say(msgEmptyAttachment)
		return s, nil
	}

	if e.docs == nil {
		return nil, ErrNoDocumentStorage
	}
	locator, err := e.docs.Put(ctx, s.UserID, s.TaskID, att.FileName, att.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	r.Say(msgAnalyzing)

	c := e.classify(ctx, s, att)
	if !c.Accepted() {
		e.discard(ctx, s.UserID, locator)
		s.FailedClassifications++
		r.Say(documentRejected(s.RequiredDocs))
		if e.maxAttempts > 0 && s.FailedClassifications >= e.maxAttempts {
			e.logger.Warn("Classification attempts exhausted",
				"user_id", s.UserID,
				"task_id", s.TaskID,
				"attempts", s.FailedClassifications,
			)
			r.Say(msgTooManyAttempts)
			return terminal(s.UserID), nil
		}
		return s, nil
	}

	if _, err := e.store.AddDocument(ctx, s.TaskID, c.Label, locator); err != nil {
		e.discard(ctx, s.UserID, locator)
		return nil, fmt.Errorf("failed to record document: %w", err)
	}
	s.FailedClassifications = 0
	r.Say(documentReceived(c.Label))

	docs, err := e.store.GetTaskDocuments(ctx, s.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	res := completion.EvaluateDocuments(s.RequiredDocs, docs, c.Label)
	if res.Ready() {
		if err := e.markReady(ctx, s.UserID, s.TaskID, r); err != nil {
			return nil, err
		}
		return terminal(s.UserID), nil
	}
	r.Say(stillMissing(res.Missing))
	return s, nil
}

// classify calls the provider under the classify timeout and validates the
// answer against the session's required labels.
func (e *Engine) classify(ctx context.Context, s *domain.Session, att *domain.Attachment) domain.Classification {
	started := e.clock()

	raw, err := "", errNoClassifier
	if e.classifier != nil {
		cctx, cancel := context.WithTimeout(ctx, e.classifyTimeout)
		raw, err = e.classifier.Classify(cctx, ports.Upload{
			FileName: att.FileName,
			MIMEType: att.MIMEType,
			Content:  att.Content,
		}, s.RequiredDocs)
		cancel()
	}

	c := domain.Classify(raw, err, s.RequiredDocs)
	e.emitClassification(ctx, s.UserID, s.TaskID, c.Outcome, e.clock().Sub(started))

	switch c.Outcome {
	case domain.OutcomeError:
		e.logger.Warn("Document classification failed",
			"kind", "classification_error",
			"user_id", s.UserID,
			"task_id", s.TaskID,
			"err", err,
		)
	case domain.OutcomeUnknown:
		e.logger.Info("Document not recognized",
			"kind", "classification_unknown",
			"user_id", s.UserID,
			"task_id", s.TaskID,
			"answer", raw,
		)
	}
	return c
}

func (e *Engine) discard(ctx context.Context, userID, locator string) {
	if err := e.docs.Delete(context.WithoutCancel(ctx), locator); err != nil {
		e.logger.Warn("Failed to delete rejected document", "user_id", userID, "locator", locator, "err", err)
	}
}

// recoverAndIntake rebuilds a lost session from the task store and continues
// with the upload as if the session had never been lost.
func (e *Engine) recoverAndIntake(ctx context.Context, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	user, err := e.store.GetUser(ctx, ev.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		r.Say(msgNoActiveTask)
		return terminal(ev.UserID), nil
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
		return terminal(ev.UserID), nil
	}
	if task.Status == domain.TaskReady {
		return e.status(ctx, ev.UserID, r)
	}

	s := domain.NewSession(ev.UserID, domain.StepAwaitingDocuments)
	s.Bind(task)
	e.logger.Info("Session recovered from task store", "user_id", ev.UserID, "task_id", task.ID)
	return e.intake(ctx, s, ev, r)
}
