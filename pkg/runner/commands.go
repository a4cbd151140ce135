package runner

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
)

// MaxAttachmentSize caps files sent with /attach.
const MaxAttachmentSize = 20 << 20

// Chat commands understood by ParseLine.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
	CommandAttach = "/attach"
)

var (
	ErrMissingPath        = errors.New("missing file path")
	ErrAttachmentTooLarge = errors.New("attachment exceeds maximum allowed size")
)

// ParseLine turns one chat line into an event for userID.
// Lines starting with a known command become start, cancel or attachment
// events; everything else is text.
func ParseLine(userID, line string) (domain.Event, error) {
	ev := domain.Event{UserID: userID, Kind: domain.EventText, Text: line}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ev, nil
	}
	switch strings.ToLower(fields[0]) {
	case CommandStart:
		return domain.Event{UserID: userID, Kind: domain.EventStart}, nil
	case CommandCancel:
		return domain.Event{UserID: userID, Kind: domain.EventCancel}, nil
	case CommandAttach:
		path := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if path == "" {
			return domain.Event{}, ErrMissingPath
		}
		att, err := LoadAttachment(path)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.Event{UserID: userID, Kind: domain.EventAttachment, Attachment: att}, nil
	}
	return ev, nil
}

// LoadAttachment reads a local file the way a transport would receive it.
func LoadAttachment(path string) (*domain.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read attachment: %s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: size=%d limit=%d", ErrAttachmentTooLarge, info.Size(), MaxAttachmentSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return &domain.Attachment{
		FileName: filepath.Base(path),
		MIMEType: DetectMIMEType(path, content),
		Content:  content,
	}, nil
}

// DetectMIMEType guesses the media type from the extension, then the content.
func DetectMIMEType(name string, content []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if media, _, err := mime.ParseMediaType(t); err == nil {
			return media
		}
		return t
	}
	t := http.DetectContentType(content)
	if media, _, err := mime.ParseMediaType(t); err == nil {
		return media
	}
	return t
}
