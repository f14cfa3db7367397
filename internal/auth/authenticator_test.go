package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAuthenticator_Token(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "expected HTTP Basic auth")
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "buildings", r.PostForm.Get("scope"))

		writeJSON(w, http.StatusOK, `{"access_token":"abc123","token_type":"Bearer","expires_in":3600}`)
	})

	a := NewAuthenticator(Credentials{ClientID: "client-id", ClientSecret: "client-secret"}, srv.URL, "buildings")

	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}

func TestAuthenticator_NoCaching(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"access_token":"abc123","token_type":"Bearer","expires_in":3600}`)
	})

	a := NewAuthenticator(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, "buildings")

	for i := 0; i < 2; i++ {
		_, err := a.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load(), "every call must re-authenticate")
}

func TestAuthenticator_Unauthorized(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_client"}`)
	})

	a := NewAuthenticator(Credentials{ClientID: "id", ClientSecret: "wrong"}, srv.URL, "buildings")

	tok, err := a.Token(context.Background())
	require.Error(t, err)
	assert.Nil(t, tok)

	var authErr *Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %T", err)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)

	var retrieveErr *oauth2.RetrieveError
	assert.True(t, errors.As(err, &retrieveErr), "auth.Error should unwrap to the oauth2 error")
}

func TestAuthenticator_MissingAccessToken(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token_type":"Bearer","expires_in":3600}`)
	})

	a := NewAuthenticator(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, "buildings")

	_, err := a.Token(context.Background())
	require.Error(t, err)

	var authErr *Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %T", err)
	assert.Contains(t, err.Error(), "access_token")
}

func TestAuthenticator_UsesProvidedHTTPClient(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flushfinder-test", r.Header.Get("X-Test"))
		writeJSON(w, http.StatusOK, `{"access_token":"abc","token_type":"Bearer"}`)
	})

	client := &http.Client{Transport: headerTransport{base: http.DefaultTransport}}
	a := NewAuthenticator(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, "buildings",
		WithHTTPClient(client))

	_, err := a.Token(context.Background())
	require.NoError(t, err)
}

func TestError_Message(t *testing.T) {
	err := &Error{Status: 401, Err: errors.New("invalid_client")}
	assert.Equal(t, "auth: token request failed (status 401): invalid_client", err.Error())

	err = &Error{Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "auth: token request failed: dial tcp: refused", err.Error())
}

type headerTransport struct {
	base http.RoundTripper
}

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Test", "flushfinder-test")
	return h.base.RoundTrip(r)
}
