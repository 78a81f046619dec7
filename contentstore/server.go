package contentstore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// matches one at(path, "value") predicate inside a q parameter
var rePredicate = regexp.MustCompile(`at\(\s*([A-Za-z0-9_.]+)\s*,\s*("(?:[^"\\]|\\.)*")\s*\)`)

// Server exposes a Store over the CMS search API.
type Server struct {
	store       *Store
	accessToken string
}

// NewServer creates a Server for store. A non-empty accessToken is required
// on every request.
func NewServer(store *Store, accessToken string) *Server {
	return &Server{store: store, accessToken: accessToken}
}

// Register mounts the API on g, usually e.Group("/api/v2").
func (s *Server) Register(g *echo.Group) {
	g.Use(s.checkToken)
	g.GET("", s.handleAPI)
	g.GET("/documents/search", s.handleSearch)
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) checkToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.accessToken != "" && c.QueryParam("access_token") != s.accessToken {
			return c.JSON(http.StatusUnauthorized, apiError{Type: "api_security_error", Message: "Invalid access token"})
		}
		return next(c)
	}
}

type refInfo struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

func (s *Server) handleAPI(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"refs": []refInfo{{ID: "master", Ref: s.store.Ref(), Label: "Master", IsMasterRef: true}},
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	if c.QueryParam("ref") == "" {
		return c.JSON(http.StatusBadRequest, apiError{Type: "api_validation_error", Message: "missing ref"})
	}
	q, err := parseQuery(c.QueryParams()["q"])
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Type: "api_parsing_error", Message: err.Error()})
	}
	q.Page = intParam(c, "page", 1)
	q.PageSize = intParam(c, "pageSize", defaultPageSize)
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	docs, total, err := s.store.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}
	fetch := splitFetch(c.QueryParam("fetch"))
	for i := range docs {
		if docs[i].Data, err = project(docs[i].Type, docs[i].Data, fetch); err != nil {
			return err
		}
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize
	page := prismic.Page{
		Page:             q.Page,
		ResultsPerPage:   q.PageSize,
		ResultsSize:      len(docs),
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          docs,
	}
	if page.Results == nil {
		page.Results = []prismic.Document{}
	}
	if q.Page < totalPages {
		next := pageURL(c, q.Page+1)
		page.NextPage = &next
	}
	if q.Page > 1 {
		prev := pageURL(c, q.Page-1)
		page.PrevPage = &prev
	}
	return c.JSON(http.StatusOK, page)
}

// parseQuery reads every at() predicate from the q parameters. Supported
// paths are document.type, document.id and my.<type>.uid.
func parseQuery(params []string) (Query, error) {
	var q Query
	for _, p := range params {
		matches := rePredicate.FindAllStringSubmatch(p, -1)
		if len(matches) == 0 && strings.TrimSpace(p) != "" && strings.TrimSpace(p) != "[[]]" {
			return q, fmt.Errorf("unsupported predicate %q", p)
		}
		for _, m := range matches {
			value, err := strconv.Unquote(m[2])
			if err != nil {
				return q, fmt.Errorf("bad value in %q", m[0])
			}
			path := m[1]
			switch {
			case path == "document.type":
				q.Type = value
			case path == "document.id":
				q.ID = value
			case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
				docType := strings.TrimSuffix(strings.TrimPrefix(path, "my."), ".uid")
				if q.Type != "" && q.Type != docType {
					return q, fmt.Errorf("conflicting types %q and %q", q.Type, docType)
				}
				q.Type = docType
				q.UID = value
			default:
				return q, fmt.Errorf("unsupported path %q", path)
			}
		}
	}
	return q, nil
}

func intParam(c echo.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func splitFetch(raw string) []string {
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// project keeps only the data fields named in fetch ("<type>.<field>").
// An empty fetch keeps everything.
func project(docType string, data json.RawMessage, fetch []string) (json.RawMessage, error) {
	if len(fetch) == 0 {
		return data, nil
	}
	keep := make(map[string]bool)
	for _, f := range fetch {
		if field, ok := strings.CutPrefix(f, docType+"."); ok {
			keep[field] = true
		}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("contentstore: document data: %w", err)
	}
	for k := range fields {
		if !keep[k] {
			delete(fields, k)
		}
	}
	return json.Marshal(fields)
}

// pageURL rebuilds the current request URL with a different page number, so
// the predicates, projection and token carry over.
func pageURL(c echo.Context, page int) string {
	r := c.Request()
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s://%s%s?%s", c.Scheme(), r.Host, r.URL.Path, q.Encode())
}
