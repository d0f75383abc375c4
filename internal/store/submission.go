package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

// ErrNotPending is returned when a review targets a submission or
// redemption that has already been resolved.
var ErrNotPending = errors.New("not pending")

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// EvidenceFile is one uploaded file attached to a new submission.
type EvidenceFile struct {
	Path string
	Type string
}

// NewSubmission holds the fields a child provides.
type NewSubmission struct {
	ChildID        int64
	TaskID         int64
	Note           string
	BibleReference string
	Reflection     string
	LegacyPath     string
	Evidence       []EvidenceFile
}

const submissionSelect = `SELECT s.id, s.child_id, s.task_id, s.note, s.bible_reference, s.reflection,
	s.evidence_file_path, s.status, s.created_at, s.approved_at, s.reviewed_by_parent_id,
	t.id, t.parent_id, t.name, t.category, t.points, t.description, t.is_active, t.created_at,
	u.name
	FROM submissions s
	JOIN tasks t ON t.id = s.task_id
	JOIN users u ON u.id = s.child_id`

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.Submission, error) {
	var sub model.Submission
	var task model.Task
	var legacy sql.NullString
	var approvedAt sql.NullTime
	var reviewer sql.NullInt64
	var active int

	err := scanner.Scan(
		&sub.ID, &sub.ChildID, &sub.TaskID, &sub.Note, &sub.BibleReference, &sub.Reflection,
		&legacy, &sub.Status, &sub.CreatedAt, &approvedAt, &reviewer,
		&task.ID, &task.ParentID, &task.Name, &task.Category, &task.Points, &task.Description, &active, &task.CreatedAt,
		&sub.ChildName,
	)
	if err != nil {
		return nil, err
	}

	task.IsActive = active != 0
	sub.Task = &task
	if legacy.Valid {
		sub.EvidenceFilePath = &legacy.String
	}
	if approvedAt.Valid {
		sub.ApprovedAt = &approvedAt.Time
	}
	if reviewer.Valid {
		sub.ReviewedByParentID = &reviewer.Int64
	}
	return &sub, nil
}

// Create stores a PENDING submission and its evidence rows in one
// transaction. The legacy single-file path falls back to the first
// evidence file.
func (s *SubmissionStore) Create(n NewSubmission) (*model.Submission, error) {
	legacy := n.LegacyPath
	if legacy == "" && len(n.Evidence) > 0 {
		legacy = n.Evidence[0].Path
	}
	var legacyVal sql.NullString
	if legacy != "" {
		legacyVal = sql.NullString{String: legacy, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO submissions (child_id, task_id, note, bible_reference, reflection, evidence_file_path, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ChildID, n.TaskID, n.Note, n.BibleReference, n.Reflection, legacyVal, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, ev := range n.Evidence {
		if _, err := tx.Exec(
			`INSERT INTO submission_evidence (submission_id, file_path, file_type) VALUES (?, ?, ?)`,
			id, ev.Path, ev.Type,
		); err != nil {
			return nil, fmt.Errorf("insert evidence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}
	return s.GetByID(id)
}

func (s *SubmissionStore) GetByID(id int64) (*model.Submission, error) {
	row := s.db.QueryRow(submissionSelect+` WHERE s.id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	subs := []model.Submission{*sub}
	if err := s.attachEvidence(subs); err != nil {
		return nil, err
	}
	return &subs[0], nil
}

// ListByChild returns a child's submissions, newest first.
func (s *SubmissionStore) ListByChild(childID int64) ([]model.Submission, error) {
	return s.list(submissionSelect+` WHERE s.child_id = ? ORDER BY s.created_at DESC, s.id DESC`, childID)
}

// ListPending returns the pending submissions of a parent's children,
// oldest first.
func (s *SubmissionStore) ListPending(parentID int64) ([]model.Submission, error) {
	return s.list(
		submissionSelect+` WHERE u.parent_id = ? AND s.status = ? ORDER BY s.created_at ASC, s.id ASC`,
		parentID, model.StatusPending,
	)
}

func (s *SubmissionStore) list(query string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	rows.Close()

	if err := s.attachEvidence(subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// attachEvidence loads evidence rows in insertion order. It must run after
// the submission rows are closed.
func (s *SubmissionStore) attachEvidence(subs []model.Submission) error {
	for i := range subs {
		rows, err := s.db.Query(
			`SELECT id, submission_id, file_path, file_type, created_at
			 FROM submission_evidence WHERE submission_id = ? ORDER BY id ASC`, subs[i].ID,
		)
		if err != nil {
			return fmt.Errorf("list evidence: %w", err)
		}

		evidence := []model.SubmissionEvidence{}
		for rows.Next() {
			var ev model.SubmissionEvidence
			if err := rows.Scan(&ev.ID, &ev.SubmissionID, &ev.FilePath, &ev.FileType, &ev.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan evidence: %w", err)
			}
			evidence = append(evidence, ev)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate evidence: %w", err)
		}
		subs[i].Evidence = evidence
	}
	return nil
}

// Approve moves a PENDING submission to APPROVED and credits the task's
// points in the same transaction. A second call returns ErrNotPending and
// credits nothing.
func (s *SubmissionStore) Approve(id, parentID int64) (*model.Submission, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var childID int64
	var points int
	err = tx.QueryRow(
		`SELECT s.child_id, t.points FROM submissions s JOIN tasks t ON t.id = s.task_id WHERE s.id = ?`, id,
	).Scan(&childID, &points)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission points: %w", err)
	}

	if err := resolve(tx, "submissions", "approved_at", "reviewed_by_parent_id", id, parentID, model.StatusApproved); err != nil {
		return nil, err
	}

	if err := insertLedger(tx, ledgerEntry{
		childID:      childID,
		delta:        points,
		reason:       model.ReasonTaskApproved,
		submissionID: &id,
		parentID:     &parentID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return s.GetByID(id)
}

// Reject moves a PENDING submission to REJECTED. No points move.
func (s *SubmissionStore) Reject(id, parentID int64) (*model.Submission, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resolve(tx, "submissions", "approved_at", "reviewed_by_parent_id", id, parentID, model.StatusRejected); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rejection: %w", err)
	}
	return s.GetByID(id)
}

// resolve performs the PENDING -> status transition with a conditional
// update, so only one reviewer can ever win.
func resolve(tx *sql.Tx, table, timeCol, parentCol string, id, parentID int64, status string) error {
	result, err := tx.Exec(
		`UPDATE `+table+` SET status = ?, `+timeCol+` = CURRENT_TIMESTAMP, `+parentCol+` = ?
		 WHERE id = ? AND status = ?`,
		status, parentID, id, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("update %s status: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// ApprovedDays returns the distinct UTC days on which the child had an
// approved submission in category.
func (s *SubmissionStore) ApprovedDays(childID int64, category string) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT date(s.created_at) FROM submissions s JOIN tasks t ON t.id = s.task_id
		 WHERE s.child_id = ? AND s.status = ? AND t.category = ?`,
		childID, model.StatusApproved, category,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", d, err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// CountApproved counts the child's approved submissions in category.
func (s *SubmissionStore) CountApproved(childID int64, category string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions s JOIN tasks t ON t.id = s.task_id
		 WHERE s.child_id = ? AND s.status = ? AND t.category = ?`,
		childID, model.StatusApproved, category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved: %w", err)
	}
	return n, nil
}
