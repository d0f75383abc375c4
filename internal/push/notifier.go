package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

// sendTimeout bounds one fan-out to a parent's devices.
const sendTimeout = 15 * time.Second

type sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

type subscriptionStore interface {
	ListByUser(userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier tells parents about work waiting for review.
type Notifier struct {
	sender sender
	subs   subscriptionStore
	logger *slog.Logger
}

func NewNotifier(svc *Service, subs subscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{sender: svc, subs: subs, logger: logger}
}

// NotifyUser sends payload to every device the user subscribed. Expired
// subscriptions are removed. It returns how many sends succeeded.
func (n *Notifier) NotifyUser(userID int64, payload Payload) int {
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	sent := 0
	for i := range subs {
		err := n.sender.Send(ctx, &subs[i], payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			if err := n.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "id", subs[i].ID, "error", err)
			}
		default:
			n.logger.Warn("push send failed", "id", subs[i].ID, "error", err)
		}
	}
	return sent
}

func (n *Notifier) SubmissionPending(parentID int64, childName, taskName string) {
	n.NotifyUser(parentID, Payload{
		Title: "Task waiting for review",
		Body:  fmt.Sprintf("%s finished %q", childName, taskName),
		URL:   "/parent/approvals",
		Tag:   "submission-pending",
	})
}

func (n *Notifier) RedemptionPending(parentID int64, childName, rewardName string) {
	n.NotifyUser(parentID, Payload{
		Title: "Reward requested",
		Body:  fmt.Sprintf("%s wants %q", childName, rewardName),
		URL:   "/parent/approvals",
		Tag:   "redemption-pending",
	})
}
