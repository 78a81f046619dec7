package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// PostSummary is a post as shown in the listing. Timestamps stay raw; views
// format them.
type PostSummary struct {
	UID                  string      `json:"uid"`
	FirstPublicationDate *time.Time  `json:"first_publication_date"`
	Data                 SummaryData `json:"data"`
}

// SummaryData is the projected field set of a listing query.
type SummaryData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// PostDetail is a full post as shown on its own page.
type PostDetail struct {
	UID                  string
	FirstPublicationDate *time.Time
	Data                 DetailData
}

// DetailData holds the post body and metadata.
type DetailData struct {
	Title    string
	Subtitle string
	Banner   Banner
	Author   string
	Content  []Section
}

// Banner is the post header image.
type Banner struct {
	URL string
}

// Section is one heading and its rich-text body.
type Section struct {
	Heading string
	Body    []richtext.Block
}

// Pagination is the listing state: everything loaded so far plus the
// reference to the next upstream page ("" when there is none). Results are
// only ever extended, never re-sorted.
type Pagination struct {
	Results  []PostSummary
	NextPage string
}

// HasMore reports whether another page exists upstream.
func (p Pagination) HasMore() bool {
	return p.NextPage != ""
}

// Append returns the state after loading batch: batch results appended in
// order and the next page reference replaced.
func (p Pagination) Append(batch Pagination) Pagination {
	results := make([]PostSummary, 0, len(p.Results)+len(batch.Results))
	results = append(results, p.Results...)
	results = append(results, batch.Results...)
	return Pagination{Results: results, NextPage: batch.NextPage}
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
