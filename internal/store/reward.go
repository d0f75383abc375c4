package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/familypoints/internal/model"
)

// ErrInsufficientPoints is returned when a child's balance cannot cover a
// reward's cost.
var ErrInsufficientPoints = errors.New("insufficient points")

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.ParentID, &r.Name, &r.Type, &r.CostPoints, &r.Description, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.IsActive = active != 0
	return &r, nil
}

const rewardCols = `id, parent_id, name, type, cost_points, description, is_active, created_at`

func (s *RewardStore) Create(parentID int64, name, rewardType string, costPoints int, description string, active bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (parent_id, name, type, cost_points, description, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		parentID, name, rewardType, costPoints, description, boolInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns a family's rewards, active first, then by cost.
func (s *RewardStore) List(parentID int64) ([]model.Reward, error) {
	return s.list(`SELECT `+rewardCols+` FROM rewards WHERE parent_id = ? ORDER BY is_active DESC, cost_points ASC, name ASC`, parentID)
}

// ListActive returns only the rewards a child may redeem, ordered by cost.
func (s *RewardStore) ListActive(parentID int64) ([]model.Reward, error) {
	return s.list(`SELECT `+rewardCols+` FROM rewards WHERE parent_id = ? AND is_active = 1 ORDER BY cost_points ASC, name ASC`, parentID)
}

func (s *RewardStore) list(query string, args ...any) ([]model.Reward, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// Update edits the catalog entry. Existing redemptions keep the cost they
// were requested at.
func (s *RewardStore) Update(id int64, name, rewardType string, costPoints int, description string, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, type = ?, cost_points = ?, description = ?, is_active = ? WHERE id = ?`,
		name, rewardType, costPoints, description, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate hides a reward from children. Rewards are never hard deleted so
// past redemptions keep their reference.
func (s *RewardStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE rewards SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

const redemptionSelect = `SELECT d.id, d.child_id, d.reward_id, d.cost_points_at_time, d.status,
	d.created_at, d.processed_at, d.processed_by_parent_id,
	r.id, r.parent_id, r.name, r.type, r.cost_points, r.description, r.is_active, r.created_at,
	u.name
	FROM reward_redemptions d
	JOIN rewards r ON r.id = d.reward_id
	JOIN users u ON u.id = d.child_id`

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.Redemption, error) {
	var d model.Redemption
	var r model.Reward
	var processedAt sql.NullTime
	var processedBy sql.NullInt64
	var active int

	err := scanner.Scan(
		&d.ID, &d.ChildID, &d.RewardID, &d.CostPointsAtTime, &d.Status,
		&d.CreatedAt, &processedAt, &processedBy,
		&r.ID, &r.ParentID, &r.Name, &r.Type, &r.CostPoints, &r.Description, &active, &r.CreatedAt,
		&d.ChildName,
	)
	if err != nil {
		return nil, err
	}

	r.IsActive = active != 0
	d.Reward = &r
	if processedAt.Valid {
		d.ProcessedAt = &processedAt.Time
	}
	if processedBy.Valid {
		d.ProcessedByParentID = &processedBy.Int64
	}
	return &d, nil
}

// Redeem snapshots the reward's current cost, checks the child's balance and
// debits it, all in one transaction. The debit holds the points while the
// request waits for review.
func (s *RewardStore) Redeem(childID, rewardID int64) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var cost int
	if err := tx.QueryRow(`SELECT cost_points FROM rewards WHERE id = ?`, rewardID).Scan(&cost); err != nil {
		return nil, fmt.Errorf("get reward cost: %w", err)
	}

	balance, err := balanceTx(tx, childID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, ErrInsufficientPoints
	}

	result, err := tx.Exec(
		`INSERT INTO reward_redemptions (child_id, reward_id, cost_points_at_time, status) VALUES (?, ?, ?, ?)`,
		childID, rewardID, cost, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertLedger(tx, ledgerEntry{
		childID:      childID,
		delta:        -cost,
		reason:       model.ReasonRewardRedeemed,
		redemptionID: &id,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	return s.GetRedemption(id)
}

func (s *RewardStore) GetRedemption(id int64) (*model.Redemption, error) {
	row := s.db.QueryRow(redemptionSelect+` WHERE d.id = ?`, id)
	d, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return d, nil
}

// ApproveRedemption resolves a PENDING redemption. The points were debited
// when it was requested, so the ledger is untouched.
func (s *RewardStore) ApproveRedemption(id, parentID int64) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resolve(tx, "reward_redemptions", "processed_at", "processed_by_parent_id", id, parentID, model.StatusApproved); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption approval: %w", err)
	}
	return s.GetRedemption(id)
}

// RejectRedemption resolves a PENDING redemption and refunds the frozen
// cost exactly once.
func (s *RewardStore) RejectRedemption(id, parentID int64) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var childID int64
	var cost int
	err = tx.QueryRow(`SELECT child_id, cost_points_at_time FROM reward_redemptions WHERE id = ?`, id).Scan(&childID, &cost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption cost: %w", err)
	}

	if err := resolve(tx, "reward_redemptions", "processed_at", "processed_by_parent_id", id, parentID, model.StatusRejected); err != nil {
		return nil, err
	}
	if err := insertLedger(tx, ledgerEntry{
		childID:      childID,
		delta:        cost,
		reason:       model.ReasonRedemptionRefund,
		redemptionID: &id,
		parentID:     &parentID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption rejection: %w", err)
	}
	return s.GetRedemption(id)
}

// ListPendingRedemptions returns pending requests from a parent's children,
// oldest first.
func (s *RewardStore) ListPendingRedemptions(parentID int64) ([]model.Redemption, error) {
	return s.listRedemptions(
		redemptionSelect+` WHERE u.parent_id = ? AND d.status = ? ORDER BY d.created_at ASC, d.id ASC`,
		parentID, model.StatusPending,
	)
}

// ListRedemptionsByChild returns a child's redemptions, newest first.
func (s *RewardStore) ListRedemptionsByChild(childID int64) ([]model.Redemption, error) {
	return s.listRedemptions(redemptionSelect+` WHERE d.child_id = ? ORDER BY d.created_at DESC, d.id DESC`, childID)
}

func (s *RewardStore) listRedemptions(query string, args ...any) ([]model.Redemption, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var out []model.Redemption
	for rows.Next() {
		d, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
