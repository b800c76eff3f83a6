package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"alexa-gateway/internal/alexa"
)

// Options configures a Client.
type Options struct {
	EventURL     string
	AuthURL      string
	ClientID     string
	ClientSecret string
	TokenCache   string

	// HTTPClient is used for events and token requests. Defaults to a
	// client with a 30 second timeout.
	HTTPClient *http.Client
}

// Client sends events to the Alexa event gateway on behalf of the linked
// account.
type Client struct {
	httpClient *http.Client
	eventURL   string
	oauth      *oauth2.Config
	cachePath  string
	logger     *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewClient creates a new event gateway client
func NewClient(opts Options, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		eventURL:   opts.EventURL,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  opts.AuthURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		cachePath: opts.TokenCache,
		logger:    logger,
	}
}

// PostEvent sends doc to the event gateway with its scope token replaced by
// the account's access token. The caller's doc is not modified.
func (c *Client) PostEvent(ctx context.Context, doc alexa.Document) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	if doc.Event.Endpoint != nil {
		endpoint := *doc.Event.Endpoint
		doc.Event.Endpoint = &endpoint
	}
	doc.Event.Payload = maps.Clone(doc.Event.Payload)
	doc.SetScopeToken(token)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.eventURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Payload.Code != "" {
			statusErr.Code = errResp.Payload.Code
			statusErr.Description = errResp.Payload.Description
		}
		return statusErr
	}

	c.logger.Debug("event posted",
		zap.String("namespace", doc.Event.Header.Namespace),
		zap.String("name", doc.Event.Header.Name),
		zap.String("messageId", doc.Event.Header.MessageID),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")
}
