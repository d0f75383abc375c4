package model

import "time"

// Reward types
const (
	RewardMoney     = "MONEY"
	RewardPrivilege = "PRIVILEGE"
	RewardGift      = "GIFT"
)

func IsValidRewardType(t string) bool {
	return t == RewardMoney || t == RewardPrivilege || t == RewardGift
}

type Reward struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	CostPoints  int       `json:"cost_points"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Redemption freezes the reward's cost at request time.
type Redemption struct {
	ID                  int64      `json:"id"`
	ChildID             int64      `json:"child_id"`
	RewardID            int64      `json:"reward_id"`
	CostPointsAtTime    int        `json:"cost_points_at_time"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	ProcessedAt         *time.Time `json:"processed_at"`
	ProcessedByParentID *int64     `json:"processed_by_parent_id"`
	Reward              *Reward    `json:"reward,omitempty"`
	ChildName           string     `json:"child_name,omitempty"`
}
