package places

import (
	"errors"
	"fmt"
)

// ErrTransport marks a Places call that got no usable HTTP response
var ErrTransport = errors.New("places transport failure")

// APIError is returned for every non-2xx Places response
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("places %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from an APIError chain, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUpstream reports whether err came from the Places API itself: a non-2xx
// response or a failed exchange. Store and quota errors are not upstream.
func IsUpstream(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrTransport)
}
