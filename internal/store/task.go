package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/familypoints/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var active int

	err := scanner.Scan(&t.ID, &t.ParentID, &t.Name, &t.Category, &t.Points, &t.Description, &active, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.IsActive = active != 0
	return &t, nil
}

const taskCols = `id, parent_id, name, category, points, description, is_active, created_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *TaskStore) Create(parentID int64, name, category string, points int, description string, active bool) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (parent_id, name, category, points, description, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		parentID, name, category, points, description, boolInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// TaskFilter narrows List. Zero values mean no filter.
type TaskFilter struct {
	Category string
	Active   *bool
}

// List returns a family's tasks, newest first.
func (s *TaskStore) List(parentID int64, f TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE parent_id = ?`
	args := []any{parentID}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Active != nil {
		query += ` AND is_active = ?`
		args = append(args, boolInt(*f.Active))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, name, category string, points int, description string, active bool) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, category = ?, points = ?, description = ?, is_active = ? WHERE id = ?`,
		name, category, points, description, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a task with its submissions. Ledger credits already paid
// for those submissions stay, detached from the submission.
func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
