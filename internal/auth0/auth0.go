// Package auth0 validates Google fulfillment bearer tokens against an
// Auth0 tenant's userinfo endpoint, adapted from the teacher library's
// examples/service/main.go auth0Authenticator.
package auth0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Authenticator implements fulfillmentapi.AccessTokenValidator against an
// Auth0 tenant, caching validated tokens in memory.
type Authenticator struct {
	logger *zap.Logger
	domain string
	client *http.Client

	mu     sync.Mutex
	tokens map[string]string
}

// New builds an Authenticator for the given Auth0 tenant domain (e.g.
// "example.us.auth0.com").
func New(logger *zap.Logger, domain string) *Authenticator {
	return &Authenticator{
		logger: logger,
		domain: domain,
		client: &http.Client{},
		tokens: make(map[string]string),
	}
}

// Validate resolves token to the Auth0 subject it was issued for, caching
// the result so repeated fulfillment calls don't re-hit /userinfo.
func (a *Authenticator) Validate(ctx context.Context, token string) (string, error) {
	a.mu.Lock()
	if userID, found := a.tokens[token]; found {
		a.mu.Unlock()
		return userID, nil
	}
	a.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("https://%s/userinfo", a.domain), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	contentType := resp.Header.Get("content-type")
	if !strings.Contains(contentType, "application/json") {
		return "", errors.New("auth0: userinfo response not JSON")
	}

	var respPayload struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respPayload); err != nil {
		return "", err
	}

	a.logger.Info("auth0 token validated", zap.String("user_id", respPayload.Sub), zap.String("email", respPayload.Email))

	a.mu.Lock()
	a.tokens[token] = respPayload.Sub
	a.mu.Unlock()

	return respPayload.Sub, nil
}
