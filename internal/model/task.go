package model

import "time"

// Task categories
const (
	CategoryFaith    = "FAITH"
	CategorySchool   = "SCHOOL"
	CategoryHome     = "HOME"
	CategoryKindness = "KINDNESS"
	CategoryOther    = "OTHER"
)

var TaskCategories = []string{CategoryFaith, CategorySchool, CategoryHome, CategoryKindness, CategoryOther}

func IsValidCategory(c string) bool {
	for _, v := range TaskCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Task struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
