package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

// CatalogueEntry is one destination in a country catalogue file:
//
//	countries:
//	  - name: Canadá
//	    required_docs: [passaporte, foto, comprovante de renda]
type CatalogueEntry struct {
	Name         string   `yaml:"name"`
	RequiredDocs []string `yaml:"required_docs"`
}

type catalogueFile struct {
	Countries []CatalogueEntry `yaml:"countries"`
}

// ImportResult reports what an import did.
type ImportResult struct {
	Added   []string
	Skipped []string
}

// LoadCatalogue reads a YAML country catalogue.
func LoadCatalogue(path string) ([]CatalogueEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return ParseCatalogue(f)
}

// ParseCatalogue decodes a catalogue and rejects entries without a name.
func ParseCatalogue(r io.Reader) ([]CatalogueEntry, error) {
	var doc catalogueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	for i, c := range doc.Countries {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("parse catalogue: country #%d has no name", i+1)
		}
	}
	return doc.Countries, nil
}

// ImportCountries adds every entry to store. Names that already exist are
// skipped, so importing the same file twice is harmless.
func ImportCountries(ctx context.Context, store ports.TaskStore, entries []CatalogueEntry) (ImportResult, error) {
	var res ImportResult
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		_, err := store.AddCountry(ctx, name, domain.NewLabels(e.RequiredDocs...))
		switch {
		case err == nil:
			res.Added = append(res.Added, name)
		case errors.Is(err, domain.ErrAlreadyExists):
			res.Skipped = append(res.Skipped, name)
		default:
			return res, fmt.Errorf("add country %s: %w", name, err)
		}
	}
	return res, nil
}
