package enhydris

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseURLTrimmed(t *testing.T) {
	client := New("https://example.com/")
	defer client.Close()
	assert.Equal(t, "https://example.com", client.http.BaseURL())
}

func TestWithToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	client := New(srv.URL, WithToken("topsecrettokenkey"))
	defer client.Close()

	_, err := client.Models.Get(context.Background(), "stations", 42)
	require.NoError(t, err)
	assert.Equal(t, "token topsecrettokenkey", gotAuth)
}

func TestCSRFHeaderPlaceholderWithoutCredential(t *testing.T) {
	var gotCSRF string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCSRF = r.Header.Get("X-CSRFToken")
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Models.Delete(context.Background(), "stations", 42))
	assert.Equal(t, "unspecified CSRF token", gotCSRF)
}

func TestHTTPErrorWrappedIsStillDetectable(t *testing.T) {
	err := errors.Wrap(&HTTPError{StatusCode: 404, Body: "gone"}, "fetching station")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
}
