// Package rest talks to a hosted backend exposing a GoTrue-style auth API
// under /auth/v1 and a PostgREST-style table API under /rest/v1.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/pkg/config"
	"github.com/noah-isme/sma-attendance-portal/pkg/middleware/requestid"
)

// Client is the thin backend client shared by the auth gateway and the table stores.
type Client struct {
	http       *resty.Client
	anonKey    string
	serviceKey string
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// New builds a client for cfg.URL.
func New(cfg config.BackendConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		http:       resty.New(),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(cfg.URL).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return c
}

// request prepares a call authorised as the user carried by ctx, falling back
// to the anonymous key.
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	token := backend.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.SetHeader(requestid.HeaderKey, id)
	}
	return req
}

func (c *Client) adminRequest(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx).
		SetHeader("apikey", c.serviceKey).
		SetAuthToken(c.serviceKey)
	if id := requestid.FromContext(ctx); id != "" {
		req.SetHeader(requestid.HeaderKey, id)
	}
	return req
}

func (c *Client) observe(op string, start time.Time, resp *resty.Response, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Duration("latency", time.Since(start))}
	if resp != nil {
		fields = append(fields, zap.Int("status", resp.StatusCode()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Debug("backend_call", fields...)
}
