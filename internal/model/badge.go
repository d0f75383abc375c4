package model

import "time"

type Badge struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Criteria    string `json:"criteria"`
}

type ChildBadge struct {
	ID        int64     `json:"id"`
	ChildID   int64     `json:"child_id"`
	Badge     Badge     `json:"badge"`
	AwardedAt time.Time `json:"awarded_at"`
}
