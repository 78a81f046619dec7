package prismic

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the layout the API uses for publication dates.
const TimestampLayout = "2006-01-02T15:04:05-0700"

// Page is one page of a search response.
type Page struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page URL, or "" when this is the last page.
func (p Page) Next() string {
	if p.NextPage == nil {
		return ""
	}
	return *p.NextPage
}

// Document is a single CMS document. Data is left undecoded; callers own the
// schema of their custom types.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	FirstPublicationDate Timestamp       `json:"first_publication_date"`
	LastPublicationDate  Timestamp       `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Timestamp is a nullable publication date.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// NewTimestamp wraps t as a valid Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Ptr returns nil for a null timestamp.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", ErrMalformedResponse)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = NewTimestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: %w", s, ErrMalformedResponse)
}

// QueryOptions narrows a search.
type QueryOptions struct {
	Fetch    []string // field projection, e.g. "post.title"
	PageSize int
	Page     int
}
