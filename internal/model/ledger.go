package model

import "time"

// Ledger reasons
const (
	ReasonTaskApproved     = "TASK_APPROVED"
	ReasonRewardRedeemed   = "REWARD_REDEEMED"
	ReasonRedemptionRefund = "REDEMPTION_REJECTED_REFUND"
)

type LedgerEntry struct {
	ID                  int64     `json:"id"`
	ChildID             int64     `json:"child_id"`
	DeltaPoints         int       `json:"delta_points"`
	Reason              string    `json:"reason"`
	RelatedSubmissionID *int64    `json:"related_submission_id"`
	RelatedRedemptionID *int64    `json:"related_redemption_id"`
	CreatedByParentID   *int64    `json:"created_by_parent_id"`
	CreatedAt           time.Time `json:"created_at"`
}

type PointsSummary struct {
	TotalPoints              int     `json:"totalPoints"`
	TotalMoneyEquivalent     float64 `json:"totalMoneyEquivalent"`
	ThisMonthMoneyEquivalent float64 `json:"thisMonthMoneyEquivalent"`
}

type Streaks struct {
	BibleReadingStreak int `json:"bibleReadingStreak"`
	HomeworkStreak     int `json:"homeworkStreak"`
}

type ChildSummary struct {
	User    User          `json:"user"`
	Points  PointsSummary `json:"points"`
	Badges  []ChildBadge  `json:"badges"`
	Streaks Streaks       `json:"streaks"`
}
