package workflow

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/aretw0/youvisa/pkg/domain"
)

// MatchMode selects how free text is resolved to a configured country.
type MatchMode string

const (
	// MatchFirst takes an exact match, else the first country in list order
	// whose name contains the text or is contained by it.
	MatchFirst MatchMode = "first"
	// MatchLongest is MatchFirst, but the substring pass prefers the longest name.
	MatchLongest MatchMode = "longest"
	// MatchExact only accepts exact (normalized) matches.
	MatchExact MatchMode = "exact"
)

// ParseMatchMode validates a configured mode name. Empty means MatchFirst.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(s); m {
	case "":
		return MatchFirst, nil
	case MatchFirst, MatchLongest, MatchExact:
		return m, nil
	}
	return "", fmt.Errorf("unknown match mode %q", s)
}

// Normalize trims, lower-cases and strips diacritics, so "  Canadá " and
// "canada" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = strings.TrimSpace(s)
	}
	return strings.ToLower(folded)
}

// MatchCountry resolves user text against the configured countries.
// An exact match anywhere in the list always wins over a substring match.
func MatchCountry(text string, countries []domain.Country, mode MatchMode) (domain.Country, bool) {
	needle := Normalize(text)
	if needle == "" {
		return domain.Country{}, false
	}

	names := make([]string, len(countries))
	for i, c := range countries {
		names[i] = Normalize(c.Name)
		if names[i] == needle {
			return c, true
		}
	}
	if mode == MatchExact {
		return domain.Country{}, false
	}

	best := -1
	for i, name := range names {
		if name == "" {
			continue
		}
		if !strings.Contains(needle, name) && !strings.Contains(name, needle) {
			continue
		}
		if mode != MatchLongest {
			return countries[i], true
		}
		if best < 0 || len(name) > len(names[best]) {
			best = i
		}
	}
	if best < 0 {
		return domain.Country{}, false
	}
	return countries[best], true
}
