package enhydris

import (
	"context"
	"net/http"
)

// Auth owns the session lifecycle: the CSRF login handshake and the
// local logout.
type Auth struct {
	http *HTTPClient
}

const loginPath = "/accounts/login/"

// Login authenticates against the server.
//
// An empty username means anonymous mode: the credential is cleared
// and no network call is made. Otherwise the flow is: GET the login
// page to obtain the csrftoken cookie, then POST the form with the
// token echoed both as the X-CSRFToken header and inside the request
// cookies, redirects disabled (the server redirects on a failed
// login). On success the credential becomes exactly the POST
// response's cookie set; on any failure it stays cleared.
func (a Auth) Login(ctx context.Context, username, password string) error {
	a.http.cookies = nil
	if username == "" {
		return nil
	}

	getResp, err := a.http.http.R().SetContext(ctx).Get(loginPath)
	if err != nil {
		return &AuthError{Step: "get", Err: err}
	}
	if !getResp.IsSuccess() {
		return &AuthError{Step: "get", Err: &HTTPError{StatusCode: getResp.StatusCode(), Body: string(getResp.Body())}}
	}

	csrf := cookieValue(getResp.Cookies(), csrfCookieName)
	if csrf == "" {
		csrf = "unspecified CSRF token"
	}
	postResp, err := a.http.http.R().SetContext(ctx).
		SetHeader("X-CSRFToken", csrf).
		SetHeader("Referer", a.http.BaseURL()+loginPath).
		SetCookies(getResp.Cookies()).
		SetFormData(map[string]string{"username": username, "password": password}).
		Post(loginPath)
	if err != nil {
		return &AuthError{Step: "post", Err: err}
	}
	if !postResp.IsSuccess() {
		return &AuthError{Step: "post", Err: &HTTPError{StatusCode: postResp.StatusCode(), Body: string(postResp.Body())}}
	}

	a.http.cookies = postResp.Cookies()
	return nil
}

// Logout clears the credential. Local only and idempotent.
func (a Auth) Logout() {
	a.http.cookies = nil
}

// LoggedIn reports whether a credential is currently held.
func (a Auth) LoggedIn() bool {
	return len(a.http.cookies) > 0
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
