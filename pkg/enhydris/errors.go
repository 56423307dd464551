package enhydris

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openmeteo/enhydris-api-client/pkg/hts"
)

// HTTPError is any response outside the success range, and a DELETE
// that returned something other than 204. A 404 is an HTTPError too;
// use IsNotFound to distinguish it.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("enhydris api error: status=%d body=%q", e.StatusCode, e.Body)
}

// AuthError reports a failed login flow. Whenever it is returned the
// credential has been cleared; it is never left partially set.
type AuthError struct {
	Step string // "get" or "post"
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login %s: %v", e.Step, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ParseError covers malformed server payloads: bad timestamps or
// values in time-series text, and a creation response without an "id"
// field.
type ParseError = hts.ParseError

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}
