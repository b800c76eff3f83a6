package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// defaultLifetime applies when the token endpoint omits expires_in.
const defaultLifetime = time.Hour

// Grant exchanges the AcceptGrant authorization code for tokens and stores
// them in the cache.
func (c *Client) Grant(ctx context.Context, code string) error {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange grant code: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = withExpiry(tok)
	c.logger.Info("access token granted", zap.Time("expiration", c.token.Expiry))
	return c.saveToken()
}

// Token returns a valid access token, refreshing it when it has expired.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		tok, err := c.loadToken()
		if err != nil {
			return "", err
		}
		c.token = tok
	}

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if c.token.RefreshToken == "" {
		return "", ErrNoToken
	}

	c.logger.Debug("token expired, refreshing")
	tok, err := c.oauth.TokenSource(c.oauthContext(ctx), c.token).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}
	c.token = withExpiry(tok)
	if err := c.saveToken(); err != nil {
		c.logger.Warn("failed to persist refreshed token", zap.Error(err))
	}
	return c.token.AccessToken, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func withExpiry(tok *oauth2.Token) *oauth2.Token {
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(defaultLifetime)
	}
	return tok
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.cachePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if cached.AccessToken == "" && cached.RefreshToken == "" {
		return nil, ErrNoToken
	}

	return &oauth2.Token{
		AccessToken:  cached.AccessToken,
		RefreshToken: cached.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cached.Expiration,
	}, nil
}

func (c *Client) saveToken() error {
	data, err := json.Marshal(cachedToken{
		AccessToken:  c.token.AccessToken,
		RefreshToken: c.token.RefreshToken,
		Expiration:   c.token.Expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	if dir := filepath.Dir(c.cachePath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token cache directory: %w", err)
		}
	}
	if err := os.WriteFile(c.cachePath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}
