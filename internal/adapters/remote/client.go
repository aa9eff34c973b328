// Package remote implements the repository ports against a hosted
// PostgREST-style backend-as-a-service. Every mutation asks the store to
// return the affected row's representation, so callers never need a
// follow-up read after a write. The client has no retry policy: a failed
// call surfaces immediately and the next polling cycle is the retry.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/teamtrack/core/internal/infrastructure/config"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// Error is a non-success response from the remote store.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote store error: status %d: %s", e.StatusCode, e.Message)
}

// Client issues CRUD requests against the remote store's REST collections.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a remote store client from configuration.
func NewClient(cfg config.RemoteConfig, appLogger *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("remote service key is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     appLogger.WithComponent("remote"),
	}

	if claims, err := InspectServiceKey(cfg.ServiceKey); err != nil {
		c.logger.Warn("Service key is not a decodable JWT", "error", err)
	} else {
		c.logger.Info("Remote store client initialized",
			"base_url", c.baseURL,
			"key_role", claims.Role,
			"key_expires_at", claims.ExpiresAt.Format(time.RFC3339),
		)
		if time.Until(claims.ExpiresAt) < 30*24*time.Hour {
			c.logger.Warn("Service key expires soon", "expires_at", claims.ExpiresAt)
		}
	}

	return c, nil
}

// Do performs one request against a resource collection. A nil out skips
// response decoding; DELETE responses carry no body by convention.
func (c *Client) Do(ctx context.Context, method, resource string, query Query, body interface{}, out interface{}) error {
	url := c.baseURL + "/rest/v1/" + resource
	if qs := query.Encode(); qs != "" {
		url += "?" + qs
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, resource, err)
	}
	defer resp.Body.Close()

	c.logger.Debugw("Remote store call",
		"method", method,
		"resource", resource,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if method == http.MethodDelete || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

// ServiceKeyClaims is the subset of the store credential's claims worth
// surfacing at startup.
type ServiceKeyClaims struct {
	Role      string
	ExpiresAt time.Time
}

// InspectServiceKey decodes the service key without verifying its signature.
// The key is a bearer credential for an external service; we only want to
// log its role and warn before it expires.
func InspectServiceKey(key string) (*ServiceKeyClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(key, claims); err != nil {
		return nil, fmt.Errorf("parse service key: %w", err)
	}

	out := &ServiceKeyClaims{}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
