package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

// LedgerStore reads the append-only points ledger. Writes happen inside the
// submission and redemption transactions through insertLedger.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type ledgerEntry struct {
	childID      int64
	delta        int
	reason       string
	submissionID *int64
	redemptionID *int64
	parentID     *int64
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func insertLedger(tx *sql.Tx, e ledgerEntry) error {
	_, err := tx.Exec(
		`INSERT INTO points_ledger (child_id, delta_points, reason, related_submission_id, related_redemption_id, created_by_parent_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.childID, e.delta, e.reason, nullID(e.submissionID), nullID(e.redemptionID), nullID(e.parentID),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func balanceTx(tx *sql.Tx, childID int64) (int, error) {
	var total int
	err := tx.QueryRow(
		`SELECT COALESCE(SUM(delta_points), 0) FROM points_ledger WHERE child_id = ?`, childID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return total, nil
}

// Balance is the sum of every ledger delta for the child.
func (s *LedgerStore) Balance(childID int64) (int, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(delta_points), 0) FROM points_ledger WHERE child_id = ?`, childID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return total, nil
}

// Summary converts the child's balance and this month's net points to money
// using pointsPerDollar. now decides which month is "this month" (UTC).
func (s *LedgerStore) Summary(childID int64, pointsPerDollar int, now time.Time) (*model.PointsSummary, error) {
	total, err := s.Balance(childID)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var month int
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(delta_points), 0) FROM points_ledger WHERE child_id = ? AND created_at >= ?`,
		childID, monthStart.Format(time.DateTime),
	).Scan(&month)
	if err != nil {
		return nil, fmt.Errorf("sum month ledger: %w", err)
	}

	return &model.PointsSummary{
		TotalPoints:              total,
		TotalMoneyEquivalent:     toMoney(total, pointsPerDollar),
		ThisMonthMoneyEquivalent: toMoney(month, pointsPerDollar),
	}, nil
}

func toMoney(points, pointsPerDollar int) float64 {
	if pointsPerDollar <= 0 {
		return 0
	}
	return math.Round(float64(points)/float64(pointsPerDollar)*100) / 100
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var sub, red, parent sql.NullInt64

	err := scanner.Scan(&e.ID, &e.ChildID, &e.DeltaPoints, &e.Reason, &sub, &red, &parent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sub.Valid {
		e.RelatedSubmissionID = &sub.Int64
	}
	if red.Valid {
		e.RelatedRedemptionID = &red.Int64
	}
	if parent.Valid {
		e.CreatedByParentID = &parent.Int64
	}
	return &e, nil
}

const ledgerCols = `id, child_id, delta_points, reason, related_submission_id, related_redemption_id, created_by_parent_id, created_at`

// List returns the child's ledger, newest first.
func (s *LedgerStore) List(childID int64) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM points_ledger WHERE child_id = ? ORDER BY created_at DESC, id DESC`, childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
