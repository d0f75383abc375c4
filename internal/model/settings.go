package model

import "time"

const (
	DefaultPointsPerDollar = 100
	DefaultMonthlyCap      = 10.0
)

type ParentSettings struct {
	ParentID                 int64     `json:"parent_id"`
	PointsPerDollar          int       `json:"points_per_dollar"`
	MonthlyDollarCapPerChild float64   `json:"monthly_dollar_cap_per_child"`
	ShowMoneyToChildren      bool      `json:"show_money_to_children"`
	UpdatedAt                time.Time `json:"updated_at"`
}
