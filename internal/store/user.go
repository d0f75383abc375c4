package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/familypoints/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email, username sql.NullString
	var parentID sql.NullInt64

	err := scanner.Scan(&u.ID, &u.Name, &u.Role, &email, &username, &u.PasswordHash, &parentID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		u.Email = &email.String
	}
	if username.Valid {
		u.Username = &username.String
	}
	if parentID.Valid {
		u.ParentID = &parentID.Int64
	}
	return &u, nil
}

const userCols = `id, name, role, email, username, password_hash, parent_id, created_at`

// CreateParent inserts a parent account. Emails are stored lower-cased.
func (s *UserStore) CreateParent(name, email, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (name, role, email, password_hash) VALUES (?, ?, ?, ?)`,
		name, model.RoleParent, strings.ToLower(email), passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert parent: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateChild inserts a child account owned by parentID.
func (s *UserStore) CreateChild(parentID int64, name, username, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (name, role, username, password_hash, parent_id) VALUES (?, ?, ?, ?, ?)`,
		name, model.RoleChild, username, passwordHash, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByLogin finds a user by email when login contains "@", otherwise by
// username.
func (s *UserStore) GetByLogin(login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	query := `SELECT ` + userCols + ` FROM users WHERE username = ?`
	if strings.Contains(login, "@") {
		query = `SELECT ` + userCols + ` FROM users WHERE email = ?`
		login = strings.ToLower(login)
	}

	u, err := scanUser(s.db.QueryRow(query, login))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return u, nil
}

func (s *UserStore) EmailTaken(email string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, strings.ToLower(email)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) UsernameTaken(username string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}

// ListChildren returns a parent's children ordered by name.
func (s *UserStore) ListChildren(parentID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE parent_id = ? AND role = ? ORDER BY name ASC, id ASC`,
		parentID, model.RoleChild,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// GetChild returns the child only if it belongs to parentID.
func (s *UserStore) GetChild(parentID, childID int64) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userCols+` FROM users WHERE id = ? AND parent_id = ? AND role = ?`,
		childID, parentID, model.RoleChild,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return u, nil
}

// DeleteChild removes a child and, through cascades, its submissions,
// redemptions, ledger entries and badges.
func (s *UserStore) DeleteChild(parentID, childID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM users WHERE id = ? AND parent_id = ? AND role = ?`,
		childID, parentID, model.RoleChild,
	)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}
