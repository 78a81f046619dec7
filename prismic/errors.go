package prismic

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup by UID matches no document.
	ErrNotFound = errors.New("prismic: document not found")

	// ErrMalformedResponse is returned when the API answers with a body that
	// does not match the expected shape.
	ErrMalformedResponse = errors.New("prismic: malformed response")

	// ErrForeignPage is returned by FetchPage for URLs outside the configured
	// API host.
	ErrForeignPage = errors.New("prismic: page URL does not belong to the API endpoint")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prismic: GET %s: unexpected status %d", e.URL, e.StatusCode)
}
