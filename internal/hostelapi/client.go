// Package hostelapi is the HTTP client for the hostel REST backend.
package hostelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"shamshouse/internal/auth"

	"github.com/karlseguin/ccache/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	cachePrefix     = "hostelapi:"
	maxResponseSize = 8 << 20
	serviceLoginKey = "service-account"
)

var (
	ErrUnauthorized  = errors.New("hostel api: unauthorized")
	ErrNotFound      = errors.New("hostel api: not found")
	ErrNoCredentials = errors.New("hostel api: no admin session and no service credentials")
)

// APIError carries the status and the human-readable message of a rejected call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("hostel api: http %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// MessageOr returns the server's message for err, or fallback when there is none.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the hostel API. Admin endpoints authenticate with the injected
// session; when it is empty and service credentials are configured, the
// client logs in on demand.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *auth.Session
	guard      *auth.LoginGuard
	logger     *zerolog.Logger

	email    string
	password string
	loginMu  sync.Mutex

	redis    *redis.Client
	cacheTTL time.Duration
	local    *ccache.Cache[[]byte]
	localTTL time.Duration
}

func NewClient(baseURL string, timeout time.Duration, session *auth.Session, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if session == nil {
		session = auth.NewSession()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
		guard:      auth.NewLoginGuard(0, 0),
		logger:     logger,
	}
}

// UseServiceAccount configures credentials for on-demand admin login.
func (c *Client) UseServiceAccount(email, password string) {
	c.email = strings.TrimSpace(email)
	c.password = password
}

// UseRedisCache configures optional Redis caching for catalog GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseLocalCache puts an in-process cache in front of Redis.
func (c *Client) UseLocalCache(maxSize int64, ttl time.Duration) {
	c.local = ccache.New(ccache.Configure[[]byte]().MaxSize(maxSize))
	c.localTTL = ttl
}

// Close stops the local cache's background worker.
func (c *Client) Close() {
	if c.local != nil {
		c.local.Stop()
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// ensureSession logs in with the service account when no valid token is held.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.session.Valid() {
		return nil
	}
	if c.email == "" {
		return ErrNoCredentials
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	if c.session.Valid() {
		return nil
	}
	if err := c.guard.Allow(serviceLoginKey); err != nil {
		return err
	}
	if _, err := c.Login(ctx, c.email, c.password); err != nil {
		left := c.guard.Failure(serviceLoginKey)
		c.logger.Error().Err(err).Int("attempts_left", left).Msg("service account login failed")
		return fmt.Errorf("service login: %w", err)
	}
	c.guard.Success(serviceLoginKey)
	return nil
}

func (c *Client) get(ctx context.Context, path string, admin bool) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, path, nil, "", admin, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any, admin bool, headers map[string]string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	return c.send(ctx, method, path, reader, "application/json", admin, headers)
}

func (c *Client) send(
	ctx context.Context,
	method, path string,
	body io.Reader,
	contentType string,
	admin bool,
	headers map[string]string,
) (json.RawMessage, error) {
	if admin {
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.addHeaders(req)

	start := time.Now()
	data, err := c.do(req)
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = c.logger
	}
	ev := l.Debug()
	if err != nil {
		ev = l.Warn().Err(err)
	}
	ev.Str("method", method).Str("path", path).Dur("duration", time.Since(start)).Msg("hostel api call")
	return data, err
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.URL.Path, err)
	}

	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
	}
	// Error pages are not always JSON; the status code still decides.
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}

func (c *Client) addHeaders(req *http.Request) {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decode(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getCached serves catalog reads from the local cache, then Redis, then the API.
func (c *Client) getCached(ctx context.Context, key, path string, out any) error {
	key = cachePrefix + key

	if c.local != nil {
		if item := c.local.Get(key); item != nil && !item.Expired() {
			return decode(item.Value(), out)
		}
	}

	if data, ok := c.readCache(ctx, key); ok {
		if c.local != nil {
			c.local.Set(key, data, c.localTTL)
		}
		return decode(data, out)
	}

	data, err := c.get(ctx, path, false)
	if err != nil {
		return err
	}
	if err := decode(data, out); err != nil {
		return err
	}

	if c.local != nil {
		c.local.Set(key, data, c.localTTL)
	}
	c.writeCache(ctx, key, data)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Client) writeCache(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("hostel api cache write failed")
	}
}

// invalidate drops every cached entry under the given key prefixes.
func (c *Client) invalidate(ctx context.Context, prefixes ...string) {
	for _, p := range prefixes {
		prefix := cachePrefix + p
		if c.local != nil {
			c.local.DeletePrefix(prefix)
		}
		if c.redis == nil {
			continue
		}
		iter := c.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn().Err(err).Str("prefix", prefix).Msg("hostel api cache scan failed")
			continue
		}
		if len(keys) > 0 {
			_ = c.redis.Del(ctx, keys...).Err()
		}
	}
}
