package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/familypoints/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

const settingsCols = `parent_id, points_per_dollar, monthly_dollar_cap_per_child, show_money_to_children, updated_at`

func scanSettings(scanner interface{ Scan(...any) error }) (*model.ParentSettings, error) {
	var ps model.ParentSettings
	var show int
	if err := scanner.Scan(&ps.ParentID, &ps.PointsPerDollar, &ps.MonthlyDollarCapPerChild, &show, &ps.UpdatedAt); err != nil {
		return nil, err
	}
	ps.ShowMoneyToChildren = show != 0
	return &ps, nil
}

// Get returns a parent's settings, creating the defaults on first use.
func (s *SettingsStore) Get(parentID int64) (*model.ParentSettings, error) {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO parent_settings (parent_id) VALUES (?)`, parentID); err != nil {
		return nil, fmt.Errorf("ensure settings: %w", err)
	}

	ps, err := scanSettings(s.db.QueryRow(`SELECT `+settingsCols+` FROM parent_settings WHERE parent_id = ?`, parentID))
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return ps, nil
}

func (s *SettingsStore) Update(parentID int64, pointsPerDollar int, monthlyCap float64, showMoney bool) (*model.ParentSettings, error) {
	_, err := s.db.Exec(
		`INSERT INTO parent_settings (parent_id, points_per_dollar, monthly_dollar_cap_per_child, show_money_to_children, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(parent_id) DO UPDATE SET
			points_per_dollar = excluded.points_per_dollar,
			monthly_dollar_cap_per_child = excluded.monthly_dollar_cap_per_child,
			show_money_to_children = excluded.show_money_to_children,
			updated_at = CURRENT_TIMESTAMP`,
		parentID, pointsPerDollar, monthlyCap, boolInt(showMoney),
	)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return s.Get(parentID)
}
