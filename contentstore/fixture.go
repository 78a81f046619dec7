package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eringen/spacetraveling/prismic"
)

// Fixture is a seed file of documents. JSON files parse as YAML too.
type Fixture struct {
	Documents []FixtureDocument `yaml:"documents"`
}

// FixtureDocument is one document in a Fixture. Dates use the API layout or
// RFC 3339 and may be omitted.
type FixtureDocument struct {
	ID                   string         `yaml:"id"`
	UID                  string         `yaml:"uid"`
	Type                 string         `yaml:"type"`
	FirstPublicationDate string         `yaml:"first_publication_date"`
	LastPublicationDate  string         `yaml:"last_publication_date"`
	Data                 map[string]any `yaml:"data"`
}

// ReadFixture parses the fixture file at path.
func ReadFixture(path string) (Fixture, error) {
	var f Fixture
	b, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("contentstore: read fixture: %w", err)
	}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("contentstore: parse fixture %s: %w", path, err)
	}
	return f, nil
}

// Document converts the fixture entry to a CMS document.
func (d FixtureDocument) Document() (prismic.Document, error) {
	doc := prismic.Document{ID: d.ID, UID: d.UID, Type: d.Type}
	var err error
	if doc.FirstPublicationDate, err = parseFixtureDate(d.FirstPublicationDate); err != nil {
		return doc, err
	}
	if doc.LastPublicationDate, err = parseFixtureDate(d.LastPublicationDate); err != nil {
		return doc, err
	}
	if !doc.LastPublicationDate.Valid {
		doc.LastPublicationDate = doc.FirstPublicationDate
	}
	data := d.Data
	if data == nil {
		data = map[string]any{}
	}
	if doc.Data, err = json.Marshal(data); err != nil {
		return doc, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, d.UID, err)
	}
	return doc, nil
}

func parseFixtureDate(s string) (prismic.Timestamp, error) {
	var ts prismic.Timestamp
	b, _ := json.Marshal(s)
	if err := ts.UnmarshalJSON(b); err != nil {
		return ts, fmt.Errorf("%w: date %q", ErrInvalidDocument, s)
	}
	return ts, nil
}

// Seed stores every document in f and returns how many were written.
func (s *Store) Seed(ctx context.Context, f Fixture) (int, error) {
	for i, d := range f.Documents {
		doc, err := d.Document()
		if err != nil {
			return i, err
		}
		if err := s.SaveDocument(ctx, doc); err != nil {
			return i, err
		}
	}
	return len(f.Documents), nil
}
