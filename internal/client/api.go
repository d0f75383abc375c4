package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dukerupert/familypoints/internal/model"
)

type CreateChildRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type TaskRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type RewardRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	CostPoints  int    `json:"cost_points"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type SettingsRequest struct {
	PointsPerDollar          *int     `json:"points_per_dollar,omitempty"`
	MonthlyDollarCapPerChild *float64 `json:"monthly_dollar_cap_per_child,omitempty"`
	ShowMoneyToChildren      *bool    `json:"show_money_to_children,omitempty"`
}

func idPath(format string, id int64) string { return fmt.Sprintf(format, id) }

// Children

func (c *Client) CreateChild(ctx context.Context, req CreateChildRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPost, "/children", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListChildren(ctx context.Context) ([]model.User, error) {
	var list []model.User
	err := c.do(ctx, http.MethodGet, "/children", nil, &list)
	return list, err
}

func (c *Client) DeleteChild(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/children/%d", id), nil, nil)
}

func (c *Client) ChildSummary(ctx context.Context, id int64) (*model.ChildSummary, error) {
	var s model.ChildSummary
	if err := c.do(ctx, http.MethodGet, idPath("/children/%d/summary", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Tasks

// ListTasks returns the catalog. category may be empty.
func (c *Client) ListTasks(ctx context.Context, category string) ([]model.Task, error) {
	path := "/tasks"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var list []model.Task
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req TaskRequest) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPut, idPath("/tasks/%d", id), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/tasks/%d", id), nil, nil)
}

// Submissions

func (c *Client) MySubmissions(ctx context.Context) ([]model.Submission, error) {
	var list []model.Submission
	err := c.do(ctx, http.MethodGet, "/submissions/my", nil, &list)
	return list, err
}

func (c *Client) PendingSubmissions(ctx context.Context) ([]model.Submission, error) {
	var list []model.Submission
	err := c.do(ctx, http.MethodGet, "/submissions/pending", nil, &list)
	return list, err
}

// ApproveSubmission returns a business error (409) when the submission was
// already resolved.
func (c *Client) ApproveSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	var s model.Submission
	if err := c.do(ctx, http.MethodPost, idPath("/submissions/%d/approve", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) RejectSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	var s model.Submission
	if err := c.do(ctx, http.MethodPost, idPath("/submissions/%d/reject", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Rewards

func (c *Client) ListRewards(ctx context.Context) ([]model.Reward, error) {
	var list []model.Reward
	err := c.do(ctx, http.MethodGet, "/rewards", nil, &list)
	return list, err
}

func (c *Client) CreateReward(ctx context.Context, req RewardRequest) (*model.Reward, error) {
	var r model.Reward
	if err := c.do(ctx, http.MethodPost, "/rewards", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) UpdateReward(ctx context.Context, id int64, req RewardRequest) (*model.Reward, error) {
	var r model.Reward
	if err := c.do(ctx, http.MethodPut, idPath("/rewards/%d", id), req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) DeleteReward(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/rewards/%d", id), nil, nil)
}

// Redeem asks to spend points on reward. The balance in summary is checked
// first; the server repeats the check.
func (c *Client) Redeem(ctx context.Context, reward model.Reward, summary model.PointsSummary) (*model.Redemption, error) {
	if summary.TotalPoints < reward.CostPoints {
		return nil, ErrInsufficientPoints
	}
	var r model.Redemption
	if err := c.do(ctx, http.MethodPost, idPath("/rewards/%d/redeem", reward.ID), nil, &r); err != nil {
		return nil, err
	}
	if r.Status != model.StatusPending {
		return nil, &ProtocolError{Msg: fmt.Sprintf("new redemption has status %q", r.Status)}
	}
	return &r, nil
}

func (c *Client) MyRedemptions(ctx context.Context) ([]model.Redemption, error) {
	var list []model.Redemption
	err := c.do(ctx, http.MethodGet, "/rewards/redemptions/my", nil, &list)
	return list, err
}

func (c *Client) PendingRedemptions(ctx context.Context) ([]model.Redemption, error) {
	var list []model.Redemption
	err := c.do(ctx, http.MethodGet, "/rewards/redemptions/pending", nil, &list)
	return list, err
}

func (c *Client) ApproveRedemption(ctx context.Context, id int64) (*model.Redemption, error) {
	var r model.Redemption
	if err := c.do(ctx, http.MethodPost, idPath("/rewards/redemptions/%d/approve", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) RejectRedemption(ctx context.Context, id int64) (*model.Redemption, error) {
	var r model.Redemption
	if err := c.do(ctx, http.MethodPost, idPath("/rewards/redemptions/%d/reject", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Settings

func (c *Client) Settings(ctx context.Context) (*model.ParentSettings, error) {
	var s model.ParentSettings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, req SettingsRequest) (*model.ParentSettings, error) {
	var s model.ParentSettings
	if err := c.do(ctx, http.MethodPut, "/settings", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Ledger returns a child's point history, newest first.
func (c *Client) Ledger(ctx context.Context, childID int64) ([]model.LedgerEntry, error) {
	var list []model.LedgerEntry
	err := c.do(ctx, http.MethodGet, idPath("/children/%d/ledger", childID), nil, &list)
	return list, err
}
