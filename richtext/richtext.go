// Package richtext renders CMS rich-text blocks (paragraphs, headings, lists,
// preformatted text and images, with strong/em/hyperlink/label spans) as HTML
// and as plain text.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block is one rich-text element as stored by the CMS.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`

	// Image blocks only.
	URL string `json:"url,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Span marks up Text[Start:End]. Offsets count UTF-16 code units.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink and label attributes.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	Label    string `json:"label,omitempty"`
}

// AsText returns the plain text of blocks joined by a single space.
func AsText(blocks []Block) string {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}
	return strings.Join(texts, " ")
}

// Render returns a templ.Component that renders blocks as HTML.
func Render(blocks []Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderHTML(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderHTML writes the HTML representation of blocks to buf.
func RenderHTML(buf *bytes.Buffer, blocks []Block) {
	inList := false
	inOrderedList := false

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case "list-item":
			flushOrderedList()
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</li>")
			continue
		case "o-list-item":
			flushList()
			if !inOrderedList {
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</li>")
			continue
		}
		flushList()
		flushOrderedList()

		switch b.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + b.Type[len("heading"):]
			buf.WriteString("<" + tag + ">")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</" + tag + ">")
		case "preformatted":
			buf.WriteString("<pre>")
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</pre>")
		case "image":
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" loading="lazy" decoding="async"/></p>`)
		default:
			// paragraphs and unknown types
			buf.WriteString("<p>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</p>")
		}
	}
	flushList()
	flushOrderedList()
}

// FormatSpans escapes text and applies spans to it. Overlapping spans are
// clipped to the span that opened first.
func FormatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})
	var b strings.Builder
	renderSpans(&b, units, sorted, 0, len(units))
	return b.String()
}

func renderSpans(b *strings.Builder, units []uint16, spans []Span, from, to int) {
	pos := from
	for k := 0; k < len(spans); {
		s := spans[k]
		start := clamp(s.Start, pos, to)
		end := clamp(s.End, pos, to)
		if start >= end {
			k++
			continue
		}
		writeText(b, units[pos:start])
		j := k + 1
		for j < len(spans) && spans[j].Start < end {
			j++
		}
		open, closing := spanTags(s)
		b.WriteString(open)
		renderSpans(b, units, spans[k+1:j], start, end)
		b.WriteString(closing)
		pos = end
		k = j
	}
	writeText(b, units[pos:to])
}

func spanTags(s Span) (string, string) {
	switch s.Type {
	case "strong":
		return "<strong>", "</strong>"
	case "em":
		return "<em>", "</em>"
	case "hyperlink":
		href := SafeURL(s.Data.URL)
		if href == "" {
			return "", ""
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`, "</a>"
	case "label":
		return `<span class="` + html.EscapeString(s.Data.Label) + `">`, "</span>"
	default:
		return "", ""
	}
}

func writeText(b *strings.Builder, units []uint16) {
	if len(units) == 0 {
		return
	}
	escaped := html.EscapeString(string(utf16.Decode(units)))
	b.WriteString(strings.ReplaceAll(escaped, "\n", "<br />"))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeURL validates raw with CheckURL and escapes it for an HTML attribute.
func SafeURL(raw string) string {
	return html.EscapeString(CheckURL(raw))
}

// CheckURL returns raw trimmed when it is a site-relative path, a fragment
// or an http, https, mailto or tel URL, and "" otherwise.
func CheckURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}

// HeadingID returns a fragment identifier for a section heading.
func HeadingID(heading string, index int) string {
	var b strings.Builder
	prev := false
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "section-" + strconv.Itoa(index+1)
	}
	return slug
}
