package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
)

func (e *Engine) onName(s *domain.Session, ev domain.Event, r *domain.Reply) *domain.Session {
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		r.Say(msgAskName)
		return s
	}
	s.Name = name
	s.Step = domain.StepAwaitingNationalID
	r.Say(msgAskNationalID)
	return s
}

// onNationalID registers the user. A user row that already exists (a second
// registration from the same account) is not an error.
func (e *Engine) onNationalID(ctx context.Context, s *domain.Session, ev domain.Event, r *domain.Reply) (*domain.Session, error) {
	nationalID := strings.TrimSpace(ev.Text)
	if nationalID == "" {
		r.Say(msgAskNationalID)
		return s, nil
	}
	s.NationalID = nationalID

	if _, err := e.store.AddUser(ctx, s.UserID, s.Name, s.NationalID); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
		e.logger.Info("User already registered", "user_id", s.UserID)
	}

	// The store holds the identity from here on.
	s.Name, s.NationalID = "", ""
	r.Say(msgRegistered)
	return e.promptCountries(ctx, s, r)
}

// promptCountries lists the configured countries and waits for a choice.
// Without any country configured the conversation cannot go on.
func (e *Engine) promptCountries(ctx context.Context, s *domain.Session, r *domain.Reply) (*domain.Session, error) {
	countries, err := e.store.GetCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	if len(countries) == 0 {
		r.Say(msgNoCountries)
		return terminal(s.UserID), nil
	}
	r.Say(countryListHeader + countryList(countries))
	s.Step = domain.StepAwaitingCountry
	return s, nil
}

// question repeats what the given step is waiting for.
func question(step domain.Step) string {
	switch step {
	case domain.StepAwaitingName:
		return msgAskName
	case domain.StepAwaitingNationalID:
		return msgAskNationalID
	}
	return ""
}
