package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/familypoints/internal/badge"
	"github.com/dukerupert/familypoints/internal/model"
)

type BadgeStore struct {
	db *sql.DB
}

func NewBadgeStore(db *sql.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

// Stats gathers the inputs the badge rules look at.
func (s *BadgeStore) Stats(childID int64) (badge.Stats, error) {
	var st badge.Stats
	err := s.db.QueryRow(
		`SELECT
			COALESCE((SELECT SUM(delta_points) FROM points_ledger WHERE child_id = ?1 AND reason = ?2), 0),
			(SELECT COUNT(DISTINCT date(s.created_at)) FROM submissions s JOIN tasks t ON t.id = s.task_id
				WHERE s.child_id = ?1 AND s.status = ?3 AND t.category = ?4),
			(SELECT COUNT(*) FROM submissions s JOIN tasks t ON t.id = s.task_id
				WHERE s.child_id = ?1 AND s.status = ?3 AND t.category = ?5),
			(SELECT COUNT(*) FROM submissions s JOIN tasks t ON t.id = s.task_id
				WHERE s.child_id = ?1 AND s.status = ?3 AND t.category = ?6)`,
		childID, model.ReasonTaskApproved, model.StatusApproved,
		model.CategoryFaith, model.CategorySchool, model.CategoryKindness,
	).Scan(&st.LifetimePoints, &st.FaithDays, &st.SchoolApproved, &st.KindnessApproved)
	if err != nil {
		return badge.Stats{}, fmt.Errorf("badge stats: %w", err)
	}
	return st, nil
}

// Award grants the badges with the given codes. Badges the child already
// holds are left alone. It returns how many were newly awarded.
func (s *BadgeStore) Award(childID int64, codes []string) (int, error) {
	awarded := 0
	for _, code := range codes {
		result, err := s.db.Exec(
			`INSERT OR IGNORE INTO child_badges (child_id, badge_id)
			 SELECT ?, id FROM badges WHERE code = ?`,
			childID, code,
		)
		if err != nil {
			return awarded, fmt.Errorf("award badge %s: %w", code, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return awarded, fmt.Errorf("rows affected: %w", err)
		}
		awarded += int(n)
	}
	return awarded, nil
}

// Evaluate runs the badge rules for a child and awards what is due.
func (s *BadgeStore) Evaluate(childID int64) (int, error) {
	st, err := s.Stats(childID)
	if err != nil {
		return 0, err
	}
	return s.Award(childID, badge.Earned(st))
}

// ListForChild returns awarded badges in award order.
func (s *BadgeStore) ListForChild(childID int64) ([]model.ChildBadge, error) {
	rows, err := s.db.Query(
		`SELECT cb.id, cb.child_id, cb.awarded_at, b.id, b.code, b.name, b.description, b.criteria
		 FROM child_badges cb JOIN badges b ON b.id = cb.badge_id
		 WHERE cb.child_id = ? ORDER BY cb.awarded_at ASC, cb.id ASC`, childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list child badges: %w", err)
	}
	defer rows.Close()

	var out []model.ChildBadge
	for rows.Next() {
		var cb model.ChildBadge
		if err := rows.Scan(&cb.ID, &cb.ChildID, &cb.AwardedAt,
			&cb.Badge.ID, &cb.Badge.Code, &cb.Badge.Name, &cb.Badge.Description, &cb.Badge.Criteria); err != nil {
			return nil, fmt.Errorf("scan child badge: %w", err)
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}
