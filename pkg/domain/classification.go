package domain

// Sentinels a classification provider may return instead of a label.
const (
	ClassUnknown = "UNKNOWN"
	ClassError   = "ERROR"
)

// Outcome is how the engine judged a classifier result.
type Outcome string

const (
	OutcomeRecognized Outcome = "recognized"
	OutcomeUnknown    Outcome = "unknown"
	OutcomeError      Outcome = "error"
)

// Classification is a classifier result after validation against the allowed labels.
type Classification struct {
	Label   string  `json:"label,omitempty"`
	Outcome Outcome `json:"outcome"`
}

// Accepted reports whether the document can be stored under Label.
func (c Classification) Accepted() bool {
	return c.Outcome == OutcomeRecognized
}

// Classify turns a raw provider answer into a Classification.
// A provider failure or the ERROR sentinel yields OutcomeError; any value not
// literally present in allowed yields OutcomeUnknown, even if the provider
// returned something that looks plausible.
func Classify(raw string, err error, allowed Labels) Classification {
	if err != nil || raw == ClassError {
		return Classification{Outcome: OutcomeError}
	}
	if !allowed.Contains(raw) {
		return Classification{Outcome: OutcomeUnknown}
	}
	return Classification{Label: raw, Outcome: OutcomeRecognized}
}
