package domain

import "strings"

// Labels is an ordered set of document-type labels.
// The order is the order of first insertion and is kept for display and for
// deterministic output; membership is what carries meaning.
type Labels []string

// ParseLabels splits a comma-joined label list, trimming blanks and dropping duplicates.
func ParseLabels(raw string) Labels {
	return NewLabels(strings.Split(raw, ",")...)
}

// NewLabels builds a label set from the given items.
func NewLabels(items ...string) Labels {
	out := make(Labels, 0, len(items))
	for _, item := range items {
		out = out.Add(item)
	}
	return out
}

// Add returns the set with label appended, unless it is blank or already present.
func (l Labels) Add(label string) Labels {
	label = strings.TrimSpace(label)
	if label == "" || l.Contains(label) {
		return l
	}
	return append(l, label)
}

// Contains reports whether label is literally present in the set.
func (l Labels) Contains(label string) bool {
	for _, item := range l {
		if item == label {
			return true
		}
	}
	return false
}

// Minus returns the labels of l that are not in other, keeping l's order.
func (l Labels) Minus(other Labels) Labels {
	out := make(Labels, 0, len(l))
	for _, item := range l {
		if !other.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

// String joins the labels with commas, the persisted representation.
func (l Labels) String() string {
	return strings.Join(l, ",")
}

// Display joins the labels for human-facing messages.
func (l Labels) Display() string {
	return strings.Join(l, ", ")
}
