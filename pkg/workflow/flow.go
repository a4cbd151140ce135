package workflow

import "github.com/aretw0/youvisa/pkg/domain"

// Transition is one edge of the intake conversation.
type Transition struct {
	From    domain.Step
	To      domain.Step
	Trigger domain.EventKind
	Label   string
}

var awaitingSteps = []domain.Step{
	domain.StepAwaitingName,
	domain.StepAwaitingNationalID,
	domain.StepAwaitingCountry,
	domain.StepAwaitingDocuments,
}

// Flow lists the step transitions the engine can take, in dispatch order.
// Self-loops (re-prompts, chat, rejected documents) are left out.
func Flow() []Transition {
	flow := []Transition{
		{domain.StepNone, domain.StepAwaitingName, domain.EventStart, "new user"},
		{domain.StepNone, domain.StepAwaitingCountry, domain.EventStart, "registered user"},
		{domain.StepNone, domain.StepTerminal, domain.EventStart, "no countries"},
		{domain.StepAwaitingName, domain.StepAwaitingNationalID, domain.EventText, "name"},
		{domain.StepAwaitingNationalID, domain.StepAwaitingCountry, domain.EventText, "national id"},
		{domain.StepAwaitingNationalID, domain.StepTerminal, domain.EventText, "no countries"},
		{domain.StepAwaitingCountry, domain.StepAwaitingDocuments, domain.EventText, "country matched"},
		{domain.StepAwaitingCountry, domain.StepTerminal, domain.EventText, "status or nothing missing"},
		{domain.StepAwaitingDocuments, domain.StepTerminal, domain.EventAttachment, "all received or retry cap"},
		{domain.StepNone, domain.StepAwaitingDocuments, domain.EventAttachment, "active task recovered"},
		{domain.StepNone, domain.StepTerminal, domain.EventAttachment, "no active task"},
	}
	for _, step := range awaitingSteps {
		flow = append(flow, Transition{step, domain.StepTerminal, domain.EventCancel, "cancel"})
	}
	return flow
}
