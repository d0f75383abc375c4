package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/familypoints/internal/model"
)

// MaxAnnouncementLength is the longest message the server accepts, in characters.
const MaxAnnouncementLength = 500

// NotSeenYet is the read status of an announcement without receipts.
const NotSeenYet = "Not seen yet"

func (c *Client) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	var list []model.Announcement
	err := c.do(ctx, http.MethodGet, "/announcements", nil, &list)
	return list, err
}

// CreateAnnouncement trims message and refuses empty or overlong messages
// without calling the server.
func (c *Client) CreateAnnouncement(ctx context.Context, message string) (*model.Announcement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, newValidationError("", map[string]string{"message": "is required"})
	}
	if utf8.RuneCountInString(message) > MaxAnnouncementLength {
		return nil, newValidationError("", map[string]string{"message": fmt.Sprintf("must be at most %d characters", MaxAnnouncementLength)})
	}

	var a model.Announcement
	if err := c.do(ctx, http.MethodPost, "/announcements", map[string]string{"message": message}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAnnouncement deletes for a parent and dismisses for a child.
func (c *Client) DeleteAnnouncement(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/announcements/%d", id), nil, nil)
}

func (c *Client) MarkAnnouncementRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, idPath("/announcements/%d/read", id), nil, nil)
}

// ReadStatus renders the receipts of a, one line per child in read order.
func ReadStatus(a model.Announcement, loc *time.Location) []string {
	if len(a.Reads) == 0 {
		return []string{NotSeenYet}
	}
	if loc == nil {
		loc = time.Local
	}
	lines := make([]string, 0, len(a.Reads))
	for _, r := range a.Reads {
		name := r.ChildName
		if name == "" {
			name = fmt.Sprintf("child %d", r.ChildID)
		}
		lines = append(lines, fmt.Sprintf("%s read %s", name, r.ReadAt.In(loc).Format("Jan 2, 3:04 PM")))
	}
	return lines
}

// ActiveTasks keeps the tasks a child may be offered.
func ActiveTasks(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

// ActiveRewards keeps the rewards a child may be offered.
func ActiveRewards(rewards []model.Reward) []model.Reward {
	var out []model.Reward
	for _, r := range rewards {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}
