package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/google/uuid"
)

// ErrInvalidLocator is returned for locators that escape the storage root.
var ErrInvalidLocator = errors.New("invalid document locator")

// Documents stores uploaded files under Root as <user>/<task>_<uuid><ext>.
// Locators are slash-separated paths relative to Root.
type Documents struct {
	Root string
}

// NewDocuments creates a document store rooted at root.
// If root is empty, it defaults to "uploads".
func NewDocuments(root string) *Documents {
	if root == "" {
		root = "uploads"
	}
	return &Documents{Root: root}
}

func (d *Documents) Put(ctx context.Context, userID string, taskID int64, fileName string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, err := safeSegment(userID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	locator := fmt.Sprintf("%s/%d_%s%s", user, taskID, uuid.NewString(), ext)

	if err := writeAtomic(d.path(locator), content, 0o640); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return locator, nil
}

func (d *Documents) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := d.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", locator, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open document: %w", err)
	}
	return f, nil
}

func (d *Documents) Delete(ctx context.Context, locator string) error {
	path, err := d.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (d *Documents) path(locator string) string {
	return filepath.Join(d.Root, filepath.FromSlash(locator))
}

// resolve maps a locator to a path, refusing anything outside Root.
func (d *Documents) resolve(locator string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(locator))
	if locator == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return filepath.Join(d.Root, clean), nil
}

func safeSegment(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: user id %q", ErrInvalidLocator, id)
	}
	return id, nil
}

var _ ports.DocumentStorage = (*Documents)(nil)
