package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sessionarc/sessionarc/credentials"
	"github.com/sessionarc/sessionarc/pkg/logging"
)

// DefaultAuthBaseURL is the OAuth token endpoint root.
const DefaultAuthBaseURL = "https://zoom.us"

// tokenExpirySlack refreshes tokens slightly before their hard expiry.
const tokenExpirySlack = 2 * time.Minute

// StaticToken is a TokenProvider that always returns the same token.
// Used in tests and for manually issued tokens.
type StaticToken string

// Token returns the static token.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("no platform token configured")
	}
	return string(t), nil
}

// OAuthTokenSource obtains access tokens with the server-to-server
// account-credentials grant, caching the token until near expiry and
// persisting it back to the credentials store so other invocations reuse it.
type OAuthTokenSource struct {
	authBaseURL string
	store       *credentials.Store
	http        *http.Client
	logger      logging.Logger

	mu     sync.Mutex
	cached *credentials.Credentials
}

// NewOAuthTokenSource creates a token source backed by the credentials store.
func NewOAuthTokenSource(store *credentials.Store, logger logging.Logger) *OAuthTokenSource {
	return &OAuthTokenSource{
		authBaseURL: DefaultAuthBaseURL,
		store:       store,
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger.With(logging.F("component", "token_source")),
	}
}

// WithAuthBaseURL overrides the OAuth endpoint root. Used in tests.
func (s *OAuthTokenSource) WithAuthBaseURL(base string) *OAuthTokenSource {
	s.authBaseURL = base
	return s
}

// Token returns a valid access token, refreshing via the OAuth grant when
// the cached one is absent or expiring.
func (s *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		creds, err := s.store.GetActiveCredential()
		if err != nil {
			return "", fmt.Errorf("loading platform credentials: %w", err)
		}
		s.cached = creds
	}

	if s.cached.AccessToken != "" && time.Now().Add(tokenExpirySlack).Before(s.cached.ExpiresAt) {
		return s.cached.AccessToken, nil
	}

	if err := s.refresh(ctx); err != nil {
		return "", err
	}

	return s.cached.AccessToken, nil
}

func (s *OAuthTokenSource) refresh(ctx context.Context) error {
	creds := s.cached
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.AccountID == "" {
		return fmt.Errorf("platform credentials incomplete: run 'sessionarc auth setup'")
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", creds.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.authBaseURL+"/oauth/token?"+form.Encode(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("token request failed: HTTP %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("token request failed: malformed response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token request failed: empty access token")
	}

	creds.AccessToken = tok.AccessToken
	creds.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	// Best effort: a failed save only costs a refresh next invocation.
	if err := s.store.Save(creds); err != nil {
		s.logger.Warn("Failed to persist refreshed token", logging.Err(err))
	}

	s.logger.Debug("Platform token refreshed",
		logging.F("expires_at", creds.ExpiresAt.Format(time.RFC3339)))

	return nil
}
