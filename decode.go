package spacetraveling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// PostType is the CMS custom type holding blog posts.
const PostType = "post"

var (
	// ErrNotFound is returned when a requested post does not exist.
	ErrNotFound = prismic.ErrNotFound

	// ErrMalformedResponse is returned for documents missing required fields.
	ErrMalformedResponse = prismic.ErrMalformedResponse

	// ErrNoMorePages is returned by LoadMore when the state has no next page.
	ErrNoMorePages = errors.New("spacetraveling: no more pages")
)

// RawPost is the backend document schema of the "post" type.
type RawPost struct {
	UID                  string
	FirstPublicationDate prismic.Timestamp
	Data                 RawPostData
}

// RawPostData mirrors the document's data block. Title is a pointer so a
// missing title can be told apart from an empty one.
type RawPostData struct {
	Title    *string      `json:"title"`
	Subtitle string       `json:"subtitle"`
	Author   string       `json:"author"`
	Banner   RawBanner    `json:"banner"`
	Content  []RawSection `json:"content"`
}

// RawBanner is the image field of a post.
type RawBanner struct {
	URL string `json:"url"`
}

// RawSection is one entry of the content group field.
type RawSection struct {
	Heading string           `json:"heading"`
	Body    []richtext.Block `json:"body"`
}

// DecodePost validates doc against the post schema. Documents without a uid
// or a title are rejected with ErrMalformedResponse; optional fields that are
// absent decode to their zero values.
func DecodePost(doc prismic.Document) (RawPost, error) {
	if doc.UID == "" {
		return RawPost{}, fmt.Errorf("post %q: missing uid: %w", doc.ID, ErrMalformedResponse)
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return RawPost{}, fmt.Errorf("post %q: missing data: %w", doc.UID, ErrMalformedResponse)
	}
	var data RawPostData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return RawPost{}, fmt.Errorf("post %q: %w: %w", doc.UID, ErrMalformedResponse, err)
	}
	if data.Title == nil || strings.TrimSpace(*data.Title) == "" {
		return RawPost{}, fmt.Errorf("post %q: missing title: %w", doc.UID, ErrMalformedResponse)
	}
	return RawPost{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		Data:                 data,
	}, nil
}

// NormalizeSummary projects a raw post onto the listing fields.
func NormalizeSummary(raw RawPost) PostSummary {
	return PostSummary{
		UID:                  raw.UID,
		FirstPublicationDate: raw.FirstPublicationDate.Ptr(),
		Data: SummaryData{
			Title:    title(raw),
			Subtitle: raw.Data.Subtitle,
			Author:   raw.Data.Author,
		},
	}
}

// NormalizeDetail converts a raw post into a PostDetail. Each section body is
// copied block by block in its original order.
func NormalizeDetail(raw RawPost) PostDetail {
	sections := make([]Section, 0, len(raw.Data.Content))
	for _, s := range raw.Data.Content {
		body := make([]richtext.Block, len(s.Body))
		copy(body, s.Body)
		sections = append(sections, Section{Heading: s.Heading, Body: body})
	}
	return PostDetail{
		UID:                  raw.UID,
		FirstPublicationDate: raw.FirstPublicationDate.Ptr(),
		Data: DetailData{
			Title:    title(raw),
			Subtitle: raw.Data.Subtitle,
			Banner:   Banner{URL: raw.Data.Banner.URL},
			Author:   raw.Data.Author,
			Content:  sections,
		},
	}
}

// decodeSummaries decodes a whole result page; one malformed document fails
// the page.
func decodeSummaries(page prismic.Page) (Pagination, error) {
	results := make([]PostSummary, 0, len(page.Results))
	for _, doc := range page.Results {
		raw, err := DecodePost(doc)
		if err != nil {
			return Pagination{}, err
		}
		results = append(results, NormalizeSummary(raw))
	}
	return Pagination{Results: results, NextPage: page.Next()}, nil
}

func title(raw RawPost) string {
	if raw.Data.Title == nil {
		return ""
	}
	return *raw.Data.Title
}
