// Package client is the Go model of the FamilyPoints front end: session
// lifecycle, typed calls to the REST API, and the submission and
// redemption workflows.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// Config holds client configuration.
type Config struct {
	// BaseURL is the server origin, e.g. http://localhost:8080.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the FamilyPoints API on behalf of a Session.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	session    *Session
	logger     *slog.Logger
}

// New creates a client bound to session.
func New(cfg Config, session *Session) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	c := &Client{
		base:       base,
		httpClient: cfg.HTTPClient,
		session:    session,
		logger:     cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func (c *Client) Session() *Session { return c.session }

// ResolveURL turns a server-relative file URL into an absolute one. Absolute
// URLs are returned unchanged.
func (c *Client) ResolveURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() {
		return raw
	}
	return c.base.ResolveReference(u).String()
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + apiPrefix + path
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// send performs req with token as bearer and decodes a 2xx body into out.
func (c *Client) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
		}
		return nil
	}

	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) != nil {
		body.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
	case http.StatusUnprocessableEntity:
		return newValidationError(body.Error, body.Fields)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}

// do sends an optional JSON body with the session's token.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, c.session.Token(), out)
}
