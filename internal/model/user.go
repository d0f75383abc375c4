package model

import "time"

// Role constants
const (
	RoleParent = "PARENT"
	RoleChild  = "CHILD"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Email        *string   `json:"email"`
	Username     *string   `json:"username"`
	ParentID     *int64    `json:"parent_id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsParent() bool { return u.Role == RoleParent }

// FamilyID is the id of the parent that owns the user's family.
func (u *User) FamilyID() int64 {
	if u.ParentID != nil {
		return *u.ParentID
	}
	return u.ID
}
