package enhydris

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPClient is the low-level transport layer: it owns the resty
// client, the session credential and the mapping of error responses.
//
// The credential is the cookie set obtained by the last successful
// login; it is replaced wholesale on login and cleared on logout or on
// a failed login, never merged or partially updated. There is no
// cookie jar on purpose: cookies are attached to each request
// explicitly so the credential stays exactly what the server issued.
//
// Redirects are never followed; Enhydris redirects on a failed login,
// and following it silently would mask the failure.
//
// An HTTPClient is not safe for concurrent use. Callers sharing one
// across goroutines must serialize access themselves.
type HTTPClient struct {
	http    *resty.Client
	log     *logrus.Logger
	cookies []*http.Cookie
}

type Option func(*HTTPClient)

// NewHTTPClient creates the underlying HTTP client for a base URL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	baseURL = strings.TrimRight(baseURL, "/")

	rc := resty.New().
		SetBaseURL(baseURL).
		SetCookieJar(nil).
		SetRedirectPolicy(resty.NoRedirectPolicy())

	c := &HTTPClient{http: rc, log: logrus.StandardLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func WithRestyClient(rc *resty.Client) Option {
	return func(c *HTTPClient) {
		if rc != nil {
			c.http = rc
		}
	}
}

// WithToken configures API-token authentication instead of the cookie
// login flow; no call to Login is needed afterwards.
func WithToken(token string) Option {
	return func(c *HTTPClient) {
		if token != "" {
			c.http.SetHeader("Authorization", "token "+token)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(c *HTTPClient) {
		if log != nil {
			c.log = log
		}
	}
}

// BaseURL returns the server base URL without a trailing slash.
func (c *HTTPClient) BaseURL() string {
	return c.http.BaseURL
}

// Close releases idle connections. The HTTPClient is the
// session-scoped connection object: open it once, run a
// login+operations+logout sequence over it, close it.
func (c *HTTPClient) Close() {
	c.http.GetClient().CloseIdleConnections()
}

// req starts a request carrying the current credential.
func (c *HTTPClient) req(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if len(c.cookies) > 0 {
		r.SetCookies(c.cookies)
	}
	return r
}

// mutReq starts a state-changing request: credential plus the CSRF
// header the server requires on anything but GET.
func (c *HTTPClient) mutReq(ctx context.Context) *resty.Request {
	token := c.csrfToken()
	if token == "" {
		token = "unspecified CSRF token"
	}
	return c.req(ctx).SetHeader("X-CSRFToken", token)
}

func (c *HTTPClient) csrfToken() string {
	for _, ck := range c.cookies {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

const csrfCookieName = "csrftoken"

// check maps a finished exchange to the error taxonomy: transport
// errors are wrapped, anything but 2xx becomes an *HTTPError.
func (c *HTTPClient) check(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "executing request")
	}
	c.log.WithFields(logrus.Fields{
		"method": resp.Request.Method,
		"url":    resp.Request.URL,
		"status": resp.StatusCode(),
	}).Debug("enhydris request")
	if !resp.IsSuccess() {
		return &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func modelPath(model string, id int) string {
	return fmt.Sprintf("/api/%s/%d/", model, id)
}

func modelListPath(model string) string {
	return fmt.Sprintf("/api/%s/", model)
}
