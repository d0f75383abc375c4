package model

import "time"

// Review status shared by submissions and redemptions. PENDING is the only
// non-terminal state.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type Submission struct {
	ID                 int64                `json:"id"`
	ChildID            int64                `json:"child_id"`
	TaskID             int64                `json:"task_id"`
	Note               string               `json:"note"`
	BibleReference     string               `json:"bible_reference"`
	Reflection         string               `json:"reflection"`
	EvidenceFilePath   *string              `json:"evidence_file_path"`
	Evidence           []SubmissionEvidence `json:"evidence"`
	Status             string               `json:"status"`
	CreatedAt          time.Time            `json:"created_at"`
	ApprovedAt         *time.Time           `json:"approved_at"`
	ReviewedByParentID *int64               `json:"reviewed_by_parent_id"`
	Task               *Task                `json:"task,omitempty"`
	ChildName          string               `json:"child_name,omitempty"`
}

type SubmissionEvidence struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	FilePath     string    `json:"file_path"`
	FileType     string    `json:"file_type"`
	CreatedAt    time.Time `json:"created_at"`
}
