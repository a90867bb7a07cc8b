package scrape

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned when a URL cannot be normalized into an absolute
// http(s) URL with a host. It is the only fetch failure callers ever see.
var ErrInvalidURL = errors.New("scrape: invalid URL")

// ErrTimeout is returned by the fetcher when the request deadline expires.
var ErrTimeout = errors.New("scrape: request timed out")

// ErrBlocked is returned when the URL guard refuses a target.
var ErrBlocked = errors.New("scrape: URL targets a private or loopback address")

// FetchError reports a non-2xx response.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("scrape: HTTP %d from %s", e.Status, e.URL)
}
