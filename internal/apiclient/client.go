// Package apiclient is the single HTTP entry point to the REST backend.
// It attaches the stored access token, refreshes it once when the backend
// rejects it, and normalises failures into typed errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/naukovi-znahidky/client/internal/tokens"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshPath = "/auth/refresh/"
	defaultTimeout     = 15 * time.Second
	defaultLeeway      = 5 * time.Second
	maxBodyBytes       = 8 << 20
)

// Request describes one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Anonymous requests never carry a token and never trigger a refresh.
	Anonymous bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. The rest of the current
// http.Client is kept; the caller's client is not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRefreshPath overrides the token refresh endpoint.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithExpiryLeeway sets how close to its exp claim an access token is
// refreshed before sending.
func WithExpiryLeeway(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// OnSessionExpired registers fn to run after the stored tokens were
// rejected and cleared.
func OnSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// Client talks to the backend on behalf of one token store.
type Client struct {
	baseURL     string
	http        *http.Client
	store       tokens.Store
	logger      *zap.Logger
	refreshPath string
	leeway      time.Duration
	onExpired   func()
	refreshes   *singleflight.Group
}

// New constructs a Client for baseURL backed by store.
func New(baseURL string, store tokens.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		store:       store,
		logger:      zap.NewNop(),
		refreshPath: defaultRefreshPath,
		leeway:      defaultLeeway,
		refreshes:   &singleflight.Group{},
	}
	if c.store == nil {
		c.store = tokens.NewMemoryStore(tokens.Pair{})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy bound to store. The copy shares the transport
// and the refresh coalescing with c; opts apply to the copy only.
func (c *Client) WithTokens(store tokens.Store, opts ...Option) *Client {
	cp := *c
	cp.store = store
	cp.onExpired = nil
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Tokens returns the token store the client reads and writes.
func (c *Client) Tokens() tokens.Store {
	return c.store
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var pair tokens.Pair
	if !req.Anonymous {
		var err error
		pair, err = c.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load tokens: %w", err)
		}
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	refreshed := false
	if pair.Access != "" && pair.Refresh != "" && tokens.Expired(pair.Access, c.leeway) {
		refreshed = true
		next, err := c.refresh(ctx, pair)
		if err != nil {
			return c.refreshFailed(ctx, err)
		}
		pair = next
	}

	status, respBody, err := c.send(ctx, req, body, pair.Access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.Anonymous && pair.Access != "" {
		if refreshed || pair.Refresh == "" {
			return c.expire(ctx)
		}
		next, err := c.refresh(ctx, pair)
		if err != nil {
			return c.refreshFailed(ctx, err)
		}
		status, respBody, err = c.send(ctx, req, body, next.Access)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return c.expire(ctx)
		}
	}

	return decode(status, respBody, out)
}

func (c *Client) send(ctx context.Context, req Request, body []byte, access string) (int, []byte, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" && !req.Anonymous {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return 0, nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}

	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, respBody, nil
}

func decode(status int, body []byte, out any) error {
	if status < 200 || status > 299 {
		return parseAPIError(status, body)
	}
	if out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refresh exchanges the refresh token for a new pair and persists it.
// Concurrent refreshes of the same token share one round trip.
func (c *Client) refresh(ctx context.Context, pair tokens.Pair) (tokens.Pair, error) {
	v, err, _ := c.refreshes.Do(pair.Refresh, func() (any, error) {
		body, err := json.Marshal(map[string]string{"refresh": pair.Refresh})
		if err != nil {
			return nil, err
		}
		req := Request{Method: http.MethodPost, Path: c.refreshPath, Anonymous: true}
		status, respBody, err := c.send(ctx, req, body, "")
		if err != nil {
			return nil, err
		}
		var resp refreshResponse
		if err := decode(status, respBody, &resp); err != nil {
			return nil, err
		}
		if resp.Access == "" {
			return nil, errors.New("refresh response has no access token")
		}
		next := tokens.Pair{Access: resp.Access, Refresh: pair.Refresh}
		if resp.Refresh != "" {
			next.Refresh = resp.Refresh
		}
		return next, nil
	})
	if err != nil {
		return tokens.Pair{}, err
	}

	next := v.(tokens.Pair)
	if err := c.store.Save(ctx, next); err != nil {
		return tokens.Pair{}, fmt.Errorf("save tokens: %w", err)
	}
	c.logger.Info("access token refreshed")
	return next, nil
}

// refreshFailed ends the session unless the refresh never reached the
// backend.
func (c *Client) refreshFailed(ctx context.Context, err error) error {
	if errors.Is(err, ErrNetwork) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.logger.Warn("token refresh rejected", zap.Error(err))
	return c.expire(ctx)
}

func (c *Client) expire(ctx context.Context) error {
	c.logger.Warn("session expired, clearing tokens")
	clearErr := c.store.Clear(ctx)
	if c.onExpired != nil {
		c.onExpired()
	}
	if clearErr != nil {
		return errors.Join(ErrSessionExpired, fmt.Errorf("clear tokens: %w", clearErr))
	}
	return ErrSessionExpired
}
