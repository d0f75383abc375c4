package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/familypoints/internal/model"
)

type AnnouncementStore struct {
	db *sql.DB
}

func NewAnnouncementStore(db *sql.DB) *AnnouncementStore {
	return &AnnouncementStore{db: db}
}

func scanAnnouncement(scanner interface{ Scan(...any) error }) (*model.Announcement, error) {
	var a model.Announcement
	var active int
	if err := scanner.Scan(&a.ID, &a.ParentID, &a.Message, &active, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.IsActive = active != 0
	a.Reads = []model.AnnouncementRead{}
	return &a, nil
}

const announcementCols = `id, parent_id, message, is_active, created_at`

func (s *AnnouncementStore) Create(parentID int64, message string) (*model.Announcement, error) {
	result, err := s.db.Exec(`INSERT INTO announcements (parent_id, message) VALUES (?, ?)`, parentID, message)
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AnnouncementStore) GetByID(id int64) (*model.Announcement, error) {
	a, err := scanAnnouncement(s.db.QueryRow(`SELECT `+announcementCols+` FROM announcements WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}

	list := []model.Announcement{*a}
	if err := s.attachReads(list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListForParent returns every active announcement a parent posted with its
// read receipts, newest first.
func (s *AnnouncementStore) ListForParent(parentID int64) ([]model.Announcement, error) {
	return s.list(
		`SELECT `+announcementCols+` FROM announcements WHERE parent_id = ? AND is_active = 1
		 ORDER BY created_at DESC, id DESC`, parentID,
	)
}

// ListForChild returns the family's active announcements the child has not
// dismissed, newest first.
func (s *AnnouncementStore) ListForChild(parentID, childID int64) ([]model.Announcement, error) {
	return s.list(
		`SELECT `+announcementCols+` FROM announcements a
		 WHERE a.parent_id = ? AND a.is_active = 1
		   AND NOT EXISTS (SELECT 1 FROM announcement_dismissals d WHERE d.announcement_id = a.id AND d.child_id = ?)
		 ORDER BY a.created_at DESC, a.id DESC`, parentID, childID,
	)
}

func (s *AnnouncementStore) list(query string, args ...any) ([]model.Announcement, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	var out []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, *a)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}

	if err := s.attachReads(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnnouncementStore) attachReads(list []model.Announcement) error {
	for i := range list {
		rows, err := s.db.Query(
			`SELECT r.child_id, u.name, r.read_at FROM announcement_reads r JOIN users u ON u.id = r.child_id
			 WHERE r.announcement_id = ? ORDER BY r.read_at ASC, r.id ASC`, list[i].ID,
		)
		if err != nil {
			return fmt.Errorf("list reads: %w", err)
		}

		reads := []model.AnnouncementRead{}
		for rows.Next() {
			var rd model.AnnouncementRead
			if err := rows.Scan(&rd.ChildID, &rd.ChildName, &rd.ReadAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan read: %w", err)
			}
			reads = append(reads, rd)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate reads: %w", err)
		}
		list[i].Reads = reads
	}
	return nil
}

// Delete removes an announcement along with its receipts.
func (s *AnnouncementStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM announcements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// MarkRead records a child's receipt. Repeat reads keep the first time.
func (s *AnnouncementStore) MarkRead(announcementID, childID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO announcement_reads (announcement_id, child_id) VALUES (?, ?)`,
		announcementID, childID,
	)
	if err != nil {
		return fmt.Errorf("mark announcement read: %w", err)
	}
	return nil
}

func (s *AnnouncementStore) HasRead(announcementID, childID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM announcement_reads WHERE announcement_id = ? AND child_id = ?`,
		announcementID, childID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check announcement read: %w", err)
	}
	return n > 0, nil
}

// Dismiss hides an announcement from one child's feed.
func (s *AnnouncementStore) Dismiss(announcementID, childID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO announcement_dismissals (announcement_id, child_id) VALUES (?, ?)`,
		announcementID, childID,
	)
	if err != nil {
		return fmt.Errorf("dismiss announcement: %w", err)
	}
	return nil
}
