package completion_test

import (
	"testing"

	"github.com/aretw0/youvisa/pkg/completion"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	required := domain.NewLabels("passport", "photo")

	tests := []struct {
		name     string
		uploaded domain.Labels
		missing  domain.Labels
		ready    bool
	}{
		{"nothing uploaded", nil, domain.Labels{"passport", "photo"}, false},
		{"one of two", domain.NewLabels("passport"), domain.Labels{"photo"}, false},
		{"all", domain.NewLabels("photo", "passport"), domain.Labels{}, true},
		{"extra labels are ignored", domain.NewLabels("passport", "photo", "visa form"), domain.Labels{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := completion.Evaluate(required, tt.uploaded)
			assert.Equal(t, tt.missing, r.Missing)
			assert.Equal(t, tt.ready, r.Ready())
		})
	}
}

func TestEvaluateDocuments_DuplicatesAreHarmless(t *testing.T) {
	required := domain.NewLabels("passport", "photo")
	docs := []domain.Document{
		{DocType: "passport"},
		{DocType: "passport"},
	}

	r := completion.EvaluateDocuments(required, docs)
	assert.Equal(t, domain.Labels{"photo"}, r.Missing)

	r = completion.EvaluateDocuments(required, docs, "passport")
	assert.Equal(t, domain.Labels{"photo"}, r.Missing)

	r = completion.EvaluateDocuments(required, docs, "photo")
	assert.True(t, r.Ready())
}

func TestEvaluate_EmptyRequirementIsReady(t *testing.T) {
	assert.True(t, completion.Evaluate(domain.Labels{}, nil).Ready())
}
