package gcal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const defaultTimeout = 15 * time.Second

// ErrNotAuthenticated means no usable user token is available. The one-time consent
// flow (cmd/gcalauth) has to be run before the calendar can be read.
var ErrNotAuthenticated = errors.New("google calendar not authenticated")

// Client wraps the Google Calendar API client
type Client struct {
	config    *oauth2.Config
	tokenFile string
	timeout   time.Duration
	endpoint  string
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	service *calendar.Service
	token   *oauth2.Token
}

// Option customises a Client
type Option func(*Client)

// WithTimeout bounds every Calendar API request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEndpoint points the client at a different Calendar API base URL
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithLogger sets the logger used for token bookkeeping messages
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Google Calendar client. A missing token file is not an
// error here: the client stays unauthenticated and re-reads the file on next use.
func NewClient(credentialsFile, tokenFile string, opts ...Option) (*Client, error) {
	config, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth config: %w", err)
	}

	client := &Client{
		config:    config,
		tokenFile: tokenFile,
		timeout:   defaultTimeout,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.loadAndInitLocked(context.Background()); err != nil {
		client.logger.Warn().Err(err).Str("token_file", tokenFile).Msg("calendar not ready yet")
	}

	return client, nil
}

// IsAuthenticated returns true if the client is authenticated
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service != nil
}

// GetAuthURLWithRedirect returns the OAuth authorization URL with a custom redirect URI.
// The consent CLI uses a loopback redirect.
func (c *Client) GetAuthURLWithRedirect(redirectURI, state string) string {
	configCopy := *c.config
	configCopy.RedirectURL = redirectURI
	return configCopy.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCodeWithRedirect exchanges an authorization code for a token using a custom redirect URI
// and saves it to the token file
func (c *Client) ExchangeCodeWithRedirect(ctx context.Context, code, redirectURI string) error {
	configCopy := *c.config
	configCopy.RedirectURL = redirectURI

	token, err := configCopy.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := saveToken(c.tokenFile, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return c.initServiceLocked(ctx)
}

// calendarService returns the live service, retrying the token file when the
// client was started before consent was given
func (c *Client) calendarService(ctx context.Context) (*calendar.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.service != nil {
		return c.service, nil
	}
	if err := c.loadAndInitLocked(ctx); err != nil {
		return nil, err
	}
	return c.service, nil
}

func (c *Client) loadAndInitLocked(ctx context.Context) error {
	token, err := loadToken(c.tokenFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if !token.Valid() && token.RefreshToken == "" {
		return fmt.Errorf("%w: token in %s is expired and has no refresh token", ErrNotAuthenticated, c.tokenFile)
	}

	c.token = token
	return c.initServiceLocked(ctx)
}

// initServiceLocked initializes the Calendar service with the current token.
// Refreshes are handled by the token source and written back to the token file.
func (c *Client) initServiceLocked(ctx context.Context) error {
	if c.token == nil {
		return fmt.Errorf("%w: no token available", ErrNotAuthenticated)
	}

	// The token source outlives this call, so it must not hold a request context.
	source := &persistingTokenSource{
		base:      c.config.TokenSource(context.Background(), c.token),
		tokenFile: c.tokenFile,
		last:      c.token.AccessToken,
		logger:    c.logger,
	}
	httpClient := oauth2.NewClient(context.Background(), source)
	httpClient.Timeout = c.timeout

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	c.service = service
	return nil
}

// resetService drops the cached service so the token file is read again next time
func (c *Client) resetService() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.service = nil
	c.token = nil
}

// persistingTokenSource writes refreshed tokens back to disk
type persistingTokenSource struct {
	base      oauth2.TokenSource
	tokenFile string
	logger    zerolog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := saveToken(s.tokenFile, token); err != nil {
			s.logger.Warn().Err(err).Msg("could not save refreshed token")
		} else {
			s.logger.Debug().Time("expiry", token.Expiry).Msg("saved refreshed calendar token")
		}
	}
	return token, nil
}
