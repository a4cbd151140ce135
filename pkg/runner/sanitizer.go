package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "YOUVISA_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// MsgInputRejected is shown instead of a reply when the sanitizer refuses a message.
const MsgInputRejected = "Sua mensagem é muito longa ou contém caracteres inválidos. Por favor, envie novamente."

// IsInputRejected reports whether err comes from the sanitizer refusing a message.
func IsInputRejected(err error) bool {
	return errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8)
}

// Sanitizer cleans free text coming from a transport before it reaches the engine.
type Sanitizer struct {
	// MaxSize is the largest accepted input, in bytes.
	MaxSize int
}

// NewSanitizer creates a Sanitizer. A non-positive max falls back to the
// environment override or DefaultMaxInputSize.
func NewSanitizer(max int) *Sanitizer {
	if max <= 0 {
		max = getMaxInputSize()
	}
	return &Sanitizer{MaxSize: max}
}

// Sanitize enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func (s *Sanitizer) Sanitize(input string) (string, error) {
	// Reject rather than truncate, so the engine never sees half a message.
	if len(input) > s.MaxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), s.MaxSize)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// ESC, NUL, BEL and friends would poison logs and terminals.
	if strings.IndexFunc(input, isUnsafeControl) < 0 {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !isUnsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func getMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
