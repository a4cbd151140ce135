package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/session"
)

var (
	// ErrInvalidEvent is returned by Handle for events it cannot route.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrNoDocumentStorage is returned for attachments when the engine was built without storage.
	ErrNoDocumentStorage = errors.New("no document storage configured")
)

// Engine drives each user through registration, country selection and
// document intake. Events of one user are serialized through the session
// manager; different users are handled in parallel.
type Engine struct {
	store      ports.TaskStore
	sessions   *session.Manager
	classifier ports.Classifier
	assistant  ports.Assistant
	docs       ports.DocumentStorage

	logger           *slog.Logger
	hooks            domain.LifecycleHooks
	classifyTimeout  time.Duration
	assistantTimeout time.Duration
	maxAttempts      int
	policy           ActiveTaskPolicy
	matchMode        MatchMode
	clock            func() time.Time
}

// New creates an Engine. The assistant may be nil, in which case free-form
// text always gets the fallback answer.
func New(
	store ports.TaskStore,
	sessions *session.Manager,
	classifier ports.Classifier,
	assistant ports.Assistant,
	docs ports.DocumentStorage,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:            store,
		sessions:         sessions,
		classifier:       classifier,
		assistant:        assistant,
		docs:             docs,
		logger:           logging.NewNop(),
		classifyTimeout:  DefaultClassifyTimeout,
		assistantTimeout: DefaultAssistantTimeout,
		policy:           PolicyAllow,
		matchMode:        MatchFirst,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one inbound event and returns what to send back.
// Infrastructure failures (store, session store, blob storage) are returned as
// errors; every user-level failure is turned into a reply message instead.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) (*domain.Reply, error) {
	if ev.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}

	reply := &domain.Reply{UserID: ev.UserID}
	err := e.sessions.WithLock(ctx, ev.UserID, func(ctx context.Context, tx session.Tx) error {
		current, err := tx.Load(ctx)
		if err != nil {
			return err
		}
		from := stepOf(current)

		next, err := e.dispatch(ctx, current, ev, reply)
		if err != nil {
			return err
		}
		to := stepOf(next)

		if to == domain.StepNone || to == domain.StepTerminal {
			if current != nil {
				if err := tx.Delete(ctx); err != nil {
					return err
				}
			}
		} else if err := tx.Save(ctx, next); err != nil {
			return err
		}

		if next != nil && reply.TaskID == 0 && next.TaskID != 0 {
			reply.TaskID = next.TaskID
		}
		reply.Step = to
		reply.Terminal = to == domain.StepTerminal
		if from != to {
			e.emitStep(ctx, ev, from, to)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Event failed", "user_id", ev.UserID, "kind", ev.Kind, "err", err)
		return nil, err
	}
	return reply, nil
}

// dispatch routes the event by kind and current step. It returns the session
// to keep, or nil / a terminal session to discard it.
func (e *Engine) dispatch(ctx context.Context, s *domain.Session, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	switch ev.Kind {
	case domain.EventCancel:
		r.Say(msgCancelled)
		return terminal(ev.UserID), nil

	case domain.EventStart:
		return e.start(ctx, ev, r)

	case domain.EventText:
		if s == nil {
			return nil, e.chat(ctx, ev, nil, r)
		}
		switch s.Step {
		case domain.StepAwaitingName:
			return e.onName(s, ev, r), nil
		case domain.StepAwaitingNationalID:
			return e.onNationalID(ctx, s, ev, r)
		case domain.StepAwaitingCountry:
			return e.onCountry(ctx, s, ev, r)
		case domain.StepAwaitingDocuments:
			return s, e.chat(ctx, ev, s, r)
		}
		return nil, e.chat(ctx, ev, nil, r)

	case domain.EventAttachment:
		if s == nil || (s.Step == domain.StepAwaitingDocuments && !s.HasTask()) {
			return e.recoverAndIntake(ctx, ev, r)
		}
		switch s.Step {
		case domain.StepAwaitingDocuments:
			return e.intake(ctx, s, ev, r)
		case domain.StepAwaitingCountry:
			r.Say(msgTextOnly)
			return e.promptCountries(ctx, s, r)
		case domain.StepAwaitingName, domain.StepAwaitingNationalID:
			r.Say(msgTextOnly)
			r.Say(question(s.Step))
			return s, nil
		}
		return e.recoverAndIntake(ctx, ev, r)
	}
	return s, nil
}

// start begins or restarts the conversation. A known user skips registration.
func (e *Engine) start(ctx context.Context, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	s := domain.NewSession(ev.UserID, domain.StepAwaitingName)

	user, err := e.store.GetUser(ctx, ev.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		r.Say(welcome(ev.DisplayName))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	r.Say(welcomeBack(user.Name))
	next, err := e.promptCountries(ctx, s, r)
	if err != nil {
		return nil, err
	}
	if next.Step == domain.StepAwaitingCountry {
		r.Say(msgStatusHint)
	}
	return next, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) emitStep(ctx context.Context, ev domain.Event, from, to domain.Step) {
	if e.hooks.OnStep == nil {
		return
	}
	e.hooks.OnStep(ctx, &domain.StepEvent{
		Timestamp: e.now(),
		UserID:    ev.UserID,
		From:      from,
		To:        to,
		Trigger:   ev.Kind,
	})
}

func (e *Engine) emitTaskStatus(ctx context.Context, userID string, taskID int64, status domain.TaskStatus) {
	if e.hooks.OnTaskStatus == nil {
		return
	}
	e.hooks.OnTaskStatus(ctx, &domain.TaskEvent{
		Timestamp: e.now(),
		UserID:    userID,
		TaskID:    taskID,
		Status:    status,
	})
}

func (e *Engine) emitClassification(ctx context.Context, userID string, taskID int64, outcome domain.Outcome, d time.Duration) {
	if e.hooks.OnClassification == nil {
		return
	}
	e.hooks.OnClassification(ctx, &domain.ClassificationEvent{
		Timestamp: e.now(),
		UserID:    userID,
		TaskID:    taskID,
		Outcome:   outcome,
		Duration:  d,
	})
}

func stepOf(s *domain.Session) domain.Step {
	if s == nil {
		return domain.StepNone
	}
	return s.Step
}

func terminal(userID string) *domain.Session {
	return domain.NewSession(userID, domain.StepTerminal)
}
