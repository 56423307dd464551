package enhydris

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(srv.URL)
	t.Cleanup(client.Close)
	return client
}

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		names = append(names, ck.Name)
	}
	return names
}

func TestLoginSuccess(t *testing.T) {
	var post struct {
		csrfHeader string
		referer    string
		csrfCookie string
		username   string
		password   string
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "reallysecret"})
			http.SetCookie(w, &http.Cookie{Name: "getonly", Value: "1"})
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			post.csrfHeader = r.Header.Get("X-CSRFToken")
			post.referer = r.Header.Get("Referer")
			if ck, err := r.Cookie("csrftoken"); err == nil {
				post.csrfCookie = ck.Value
			}
			post.username = r.PostFormValue("username")
			post.password = r.PostFormValue("password")
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "newtoken"})
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "a-session"})
		}
	})
	client := newTestClient(t, mux)

	err := client.Auth.Login(context.Background(), "admin", "topsecret")
	require.NoError(t, err)

	// the POST echoed the GET's CSRF token in both header and cookie
	assert.Equal(t, "reallysecret", post.csrfHeader)
	assert.Equal(t, "reallysecret", post.csrfCookie)
	assert.Equal(t, client.http.BaseURL()+"/accounts/login/", post.referer)
	assert.Equal(t, "admin", post.username)
	assert.Equal(t, "topsecret", post.password)

	// the credential is exactly the POST's cookie set, nothing from the GET
	assert.True(t, client.Auth.LoggedIn())
	assert.ElementsMatch(t, []string{"csrftoken", "sessionid"}, cookieNames(client.http.cookies))
	assert.Equal(t, "newtoken", client.http.csrfToken())
}

func TestLoginEmptyUsername(t *testing.T) {
	hits := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	client.http.cookies = []*http.Cookie{{Name: "stale", Value: "1"}}

	err := client.Auth.Login(context.Background(), "", "useless_password")
	require.NoError(t, err)
	assert.Equal(t, 0, hits, "anonymous login must not touch the network")
	assert.Empty(t, client.http.cookies)
	assert.False(t, client.Auth.LoggedIn())
}

func TestLoginGetFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	client.http.cookies = []*http.Cookie{{Name: "stale", Value: "1"}}

	err := client.Auth.Login(context.Background(), "admin", "topsecret")
	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "get", aerr.Step)
	assert.Empty(t, client.http.cookies, "credential must stay cleared on failure")
}

func TestLoginPostFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "reallysecret"})
	}))

	err := client.Auth.Login(context.Background(), "admin", "wrong")
	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "post", aerr.Step)
	assert.Empty(t, client.http.cookies)
}

func TestLoginRedirectIsFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// what the server does when the credentials are bad
			http.Redirect(w, r, "/accounts/login/", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "reallysecret"})
	}))

	err := client.Auth.Login(context.Background(), "admin", "wrong")
	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "post", aerr.Step)
	assert.Empty(t, client.http.cookies)
}

func TestLoginReplacesCredentialWholesale(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "fresh"})
	})
	client := newTestClient(t, mux)
	client.http.cookies = []*http.Cookie{{Name: "old-session", Value: "old"}}

	require.NoError(t, client.Auth.Login(context.Background(), "admin", "topsecret"))
	assert.ElementsMatch(t, []string{"sessionid"}, cookieNames(client.http.cookies))
}

func TestLogout(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	client.http.cookies = []*http.Cookie{{Name: "sessionid", Value: "s"}}

	client.Auth.Logout()
	assert.False(t, client.Auth.LoggedIn())
	client.Auth.Logout() // idempotent
	assert.False(t, client.Auth.LoggedIn())
}
