package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	allowed := domain.NewLabels("passport", "photo")

	tests := []struct {
		name    string
		raw     string
		err     error
		want    domain.Outcome
		label   string
		accepts bool
	}{
		{"in vocabulary", "passport", nil, domain.OutcomeRecognized, "passport", true},
		{"unknown sentinel", "UNKNOWN", nil, domain.OutcomeUnknown, "", false},
		{"error sentinel", "ERROR", nil, domain.OutcomeError, "", false},
		{"provider failure", "", errors.New("timeout"), domain.OutcomeError, "", false},
		{"failure wins over label", "passport", errors.New("boom"), domain.OutcomeError, "", false},
		{"out of vocabulary", "driver license", nil, domain.OutcomeUnknown, "", false},
		{"case mismatch is out of vocabulary", "Passport", nil, domain.OutcomeUnknown, "", false},
		{"padded answer is out of vocabulary", " passport", nil, domain.OutcomeUnknown, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.Classify(tt.raw, tt.err, allowed)
			assert.Equal(t, tt.want, c.Outcome)
			assert.Equal(t, tt.label, c.Label)
			assert.Equal(t, tt.accepts, c.Accepted())
		})
	}
}
