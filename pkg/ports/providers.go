package ports

import (
	"context"
	"io"

	"github.com/aretw0/youvisa/pkg/domain"
)

// Upload is a file handed to the classifier.
type Upload struct {
	FileName string
	MIMEType string
	Content  []byte
}

// Classifier maps an uploaded document to one of the allowed labels.
// It returns the label, domain.ClassUnknown when nothing matches, or an error
// (or domain.ClassError) when the provider failed. Callers must not trust a
// returned label that is not in allowed.
type Classifier interface {
	Classify(ctx context.Context, doc Upload, allowed domain.Labels) (string, error)
}

// Assistant answers free-form user text, optionally aware of the user's application.
type Assistant interface {
	Reply(ctx context.Context, text string, chat *domain.ChatContext) (string, error)
}

// DocumentStorage keeps uploaded bytes and resolves the locators it hands out.
type DocumentStorage interface {
	// Put stores content uploaded by userID for taskID and returns its locator.
	// fileName is only used for its extension.
	Put(ctx context.Context, userID string, taskID int64, fileName string, content []byte) (string, error)

	// Open returns a reader for a stored document.
	// Returns domain.ErrNotFound if the locator does not resolve.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)

	// Delete removes a stored document. Deleting a missing locator is not an error.
	Delete(ctx context.Context, locator string) error
}
