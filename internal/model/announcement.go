package model

import "time"

type Announcement struct {
	ID        int64              `json:"id"`
	ParentID  int64              `json:"parent_id"`
	Message   string             `json:"message"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	Reads     []AnnouncementRead `json:"reads"`
}

type AnnouncementRead struct {
	ChildID   int64     `json:"child_id"`
	ChildName string    `json:"child_name"`
	ReadAt    time.Time `json:"read_at"`
}
