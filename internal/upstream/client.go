package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
)

// Client talks to the external pharmacy REST API. The API is the source of
// truth for medicines, sales, users, and notifications; the gateway never
// persists any of that locally.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a client for the configured pharmacy API host.
func New(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		http: &fasthttp.Client{
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

// apiError is the error body shape the pharmacy API returns.
type apiError struct {
	Message string `json:"message"`
}

// doJSON performs one round trip and decodes a JSON response into out.
// Transport failures map to UNAVAILABLE, 401/403 to UNAUTHORIZED, everything
// else carries the upstream message.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "encode request", err)
		}
		req.SetBody(payload)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return domain.WrapError(domain.ErrCodeUnavailable, "request deadline exceeded", ctx.Err())
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return domain.WrapError(domain.ErrCodeUnavailable, "pharmacy API unreachable", err)
	}

	status := resp.StatusCode()
	if status >= http.StatusBadRequest {
		return c.statusError(method, path, status, resp.Body())
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "decode response", err)
		}
	}
	return nil
}

// Reachable reports whether the pharmacy API host answers at all. Any HTTP
// response counts; only a transport failure marks the upstream as down.
func (c *Client) Reachable(ctx context.Context) bool {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/health")
	req.Header.SetMethod("GET")

	timeout := 3 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return false
	}
	return c.http.DoTimeout(req, resp, timeout) == nil
}

func (c *Client) statusError(method, path string, status int, body []byte) error {
	message := fmt.Sprintf("pharmacy API returned %d", status)
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}

	c.logger.Warn("upstream error response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status))

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewError(domain.ErrCodeUnauthorized, message)
	case http.StatusNotFound:
		return domain.NewError(domain.ErrCodeNotFound, message)
	case http.StatusTooManyRequests:
		return domain.NewError(domain.ErrCodeUnavailable, "too many requests, try again later")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.NewError(domain.ErrCodeInvalid, message)
	default:
		return domain.NewError(domain.ErrCodeUnavailable, message)
	}
}
