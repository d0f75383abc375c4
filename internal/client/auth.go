package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/familypoints/internal/model"
)

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

type RegisterParentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Start restores the stored token, if any, and resolves who it belongs to.
// Failures leave the session ANONYMOUS rather than being returned.
func (c *Client) Start(ctx context.Context) State {
	token, err := c.session.store.Load()
	if err != nil {
		c.logger.Warn("load stored token", "error", err)
	}
	if token == "" {
		c.session.anonymous()
		return StateAnonymous
	}

	gen := c.session.begin(token)
	c.resolve(ctx, gen, token)
	return c.session.State()
}

// Login exchanges credentials for a token, persists it and resolves the
// principal. On failure the previous session is left untouched unless the
// token was issued but could not be resolved, in which case the session is
// ANONYMOUS.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/auth/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp LoginResponse
	if err := c.send(req, "", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &ProtocolError{Msg: "login response has no access_token"}
	}

	if err := c.session.store.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	gen := c.session.begin(resp.AccessToken)
	if err := c.resolve(ctx, gen, resp.AccessToken); err != nil {
		return nil, err
	}
	return c.session.Principal(), nil
}

// Logout forgets the credential. It does not contact the server.
func (c *Client) Logout() {
	c.session.Logout()
}

func (c *Client) resolve(ctx context.Context, gen uint64, token string) error {
	u, err := c.me(ctx, token)
	if !c.session.finish(gen, u, err) {
		return ErrStale
	}
	return err
}

func (c *Client) me(ctx context.Context, token string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/users/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var u model.User
	if err := c.send(req, token, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me fetches the current principal without changing session state.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	return c.me(ctx, c.session.Token())
}

// RegisterParent creates a parent account. It does not sign in.
func (c *Client) RegisterParent(ctx context.Context, name, email, password string) (*model.User, error) {
	var u model.User
	req := RegisterParentRequest{Name: name, Email: email, Password: password, Role: model.RoleParent}
	if err := c.do(ctx, http.MethodPost, "/auth/register-parent", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
