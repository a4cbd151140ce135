package domain

// Step is the position of a user in the intake conversation.
type Step string

const (
	StepNone               Step = ""
	StepAwaitingName       Step = "awaiting_name"
	StepAwaitingNationalID Step = "awaiting_national_id"
	StepAwaitingCountry    Step = "awaiting_country"
	StepAwaitingDocuments  Step = "awaiting_documents"
	StepTerminal           Step = "terminal"
)

// Session is the per-user conversation snapshot kept between events.
// Everything except the in-flight registration answers can be rebuilt from the
// task store, so losing a session only costs the user a /start.
type Session struct {
	UserID string `json:"user_id"`
	Step   Step   `json:"step"`

	// Registration answers, held until the user row is created.
	Name       string `json:"name,omitempty"`
	NationalID string `json:"national_id,omitempty"`

	TaskID       int64  `json:"task_id,omitempty"`
	CountryName  string `json:"country_name,omitempty"`
	RequiredDocs Labels `json:"required_docs,omitempty"`

	// FailedClassifications counts consecutive rejected uploads.
	FailedClassifications int `json:"failed_classifications,omitempty"`

	// Envelope holds an opaque sealed copy of the session when a store
	// middleware encrypts at rest. Every other field is then zero.
	Envelope string `json:"envelope,omitempty"`
}

// NewSession creates a clean session at the given step.
func NewSession(userID string, step Step) *Session {
	return &Session{
		UserID: userID,
		Step:   step,
	}
}

// Registered reports whether the session is past the registration questions.
func (s *Session) Registered() bool {
	switch s.Step {
	case StepNone, StepAwaitingName, StepAwaitingNationalID:
		return false
	}
	return true
}

// HasTask reports whether the session already knows its active task.
func (s *Session) HasTask() bool {
	return s != nil && s.TaskID != 0
}

// Bind attaches the session to an active task.
func (s *Session) Bind(task ActiveTask) {
	s.TaskID = task.ID
	s.CountryName = task.CountryName
	s.RequiredDocs = task.RequiredDocs
	s.Step = StepAwaitingDocuments
	s.FailedClassifications = 0
}

// Clone returns a deep copy so stores can isolate callers from each other.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.RequiredDocs != nil {
		c.RequiredDocs = append(Labels(nil), s.RequiredDocs...)
	}
	return &c
}
