// Package completion decides whether a task has every document its country requires.
package completion

import "github.com/aretw0/youvisa/pkg/domain"

// Result is the outcome of evaluating a task's uploads against its requirements.
type Result struct {
	Required domain.Labels
	Uploaded domain.Labels
	// Missing keeps the order of Required, so output is stable for a given country.
	Missing domain.Labels
}

// Ready reports whether nothing is missing.
func (r Result) Ready() bool {
	return len(r.Missing) == 0
}

// Evaluate computes missing = required − uploaded. Only membership matters:
// uploading the same label twice changes nothing.
func Evaluate(required, uploaded domain.Labels) Result {
	return Result{
		Required: required,
		Uploaded: uploaded,
		Missing:  required.Minus(uploaded),
	}
}

// EvaluateDocuments evaluates the distinct labels of docs, plus any extra labels
// (e.g. one just classified but not read back yet).
func EvaluateDocuments(required domain.Labels, docs []domain.Document, extra ...string) Result {
	uploaded := domain.DocTypes(docs)
	for _, label := range extra {
		uploaded = uploaded.Add(label)
	}
	return Evaluate(required, uploaded)
}
