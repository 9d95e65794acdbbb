package auth0

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthenticator(t *testing.T, handler http.HandlerFunc) *Authenticator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := New(zap.NewNop(), srv.Listener.Addr().String())
	// httptest.Server always serves plain HTTP; swap in a transport that
	// rewrites the https:// userinfo URL this package always builds back
	// onto the test server's http:// listener.
	a.client = &http.Client{Transport: redirectToTestServer{srv.URL}}
	return a
}

type redirectToTestServer struct{ baseURL string }

func (r redirectToTestServer) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := http.NewRequestWithContext(req.Context(), req.Method, r.baseURL+req.URL.Path, nil)
	if err != nil {
		return nil, err
	}
	target.Header = req.Header
	return http.DefaultTransport.RoundTrip(target)
}

func TestValidateReturnsSubjectOnSuccess(t *testing.T) {
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"user-1","email":"u@example.com"}`))
	})

	userID, err := a.Validate(context.Background(), "sometoken")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestValidateCachesResult(t *testing.T) {
	calls := 0
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"user-1"}`))
	})

	_, err := a.Validate(context.Background(), "sometoken")
	require.NoError(t, err)
	_, err = a.Validate(context.Background(), "sometoken")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestValidateReturnsEmptyOnNonOKStatus(t *testing.T) {
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	userID, err := a.Validate(context.Background(), "badtoken")
	require.NoError(t, err)
	assert.Empty(t, userID)
}
