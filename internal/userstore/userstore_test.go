package userstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateUnknownBindingFails(t *testing.T) {
	s := New()
	_, ok := s.Authenticate(context.Background(), "c-1", "t-1")
	assert.False(t, ok)
}

func TestAddThenAuthenticateSucceeds(t *testing.T) {
	s := New()
	s.Add("c-1", "t-1", "u-1")

	userID, ok := s.Authenticate(context.Background(), "c-1", "t-1")
	require.True(t, ok)
	assert.Equal(t, "u-1", userID)
}

func TestAuthenticateRejectsMismatchedToken(t *testing.T) {
	s := New()
	s.Add("c-1", "t-1", "u-1")

	_, ok := s.Authenticate(context.Background(), "c-1", "wrong-token")
	assert.False(t, ok)
}

func TestLoadParsesBindingsFile(t *testing.T) {
	content := `
bindings:
  - unique_id: c-1
    token: t-1
    user_id: u-1
  - unique_id: c-2
    token: t-2
    user_id: u-2
`
	dir := t.TempDir()
	path := filepath.Join(dir, "bindings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	s, err := Load(path)
	require.NoError(t, err)

	userID, ok := s.Authenticate(context.Background(), "c-2", "t-2")
	require.True(t, ok)
	assert.Equal(t, "u-2", userID)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/bindings.yaml")
	assert.Error(t, err)
}
