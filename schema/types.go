// Package schema defines the wire contract shared with the task GraphQL
// endpoint: entity shapes, input shapes and the operation documents.
// Field names and optionality must match the server exactly.
package schema

import "time"

const (
	// DateLayout is the wire format of due dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is the wire format of server-owned timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Completion is the 0/1 encoding of a completed flag.
type Completion int32

const (
	Incomplete Completion = 0
	Complete   Completion = 1
)

// Done reports whether c marks the entity as completed.
func (c Completion) Done() bool {
	return c != Incomplete
}

// Inverse returns the value a toggle action sends.
func (c Completion) Inverse() Completion {
	if c.Done() {
		return Incomplete
	}
	return Complete
}

// CompletionOf converts a bool into its wire encoding.
func CompletionOf(done bool) Completion {
	if done {
		return Complete
	}
	return Incomplete
}

// Category is a named grouping referenced by tasks.
type Category struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Task is a top-level to-do item. CompletedAt, CreatedAt and UpdatedAt are
// server-owned and must be treated as read-only.
type Task struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Note        string     `json:"note"`
	CategoryID  *uint64    `json:"category_id"`
	DueDate     *string    `json:"due_date"`
	Completed   Completion `json:"completed"`
	CompletedAt *string    `json:"completed_at"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
	SubTasks    []SubTask  `json:"sub_tasks"`
}

// SubTask belongs to exactly one Task and does not outlive it.
type SubTask struct {
	ID          uint64     `json:"id"`
	TaskID      uint64     `json:"task_id"`
	Title       string     `json:"title"`
	Note        *string    `json:"note"`
	DueDate     *string    `json:"due_date"`
	Completed   Completion `json:"completed"`
	CompletedAt *string    `json:"completed_at"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// CompletionConsistent reports whether completed_at is set exactly when the
// task is completed.
func (t Task) CompletionConsistent() bool {
	return t.Completed.Done() == (t.CompletedAt != nil)
}

// CompletionConsistent reports whether completed_at is set exactly when the
// sub-task is completed.
func (s SubTask) CompletionConsistent() bool {
	return s.Completed.Done() == (s.CompletedAt != nil)
}

// Due parses the due date, if any.
func (t Task) Due() (time.Time, bool) {
	return parseDate(t.DueDate)
}

// Due parses the due date, if any.
func (s SubTask) Due() (time.Time, bool) {
	return parseDate(s.DueDate)
}

func parseDate(v *string) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, *v, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// TaskFilter holds the independent ListTasks predicates. A nil pointer or a
// false IncompleteOnly means the predicate is not applied.
type TaskFilter struct {
	CategoryID     *uint64
	DueDateStart   *string
	DueDateEnd     *string
	IncompleteOnly bool
}

// Variables returns the ListTasks variables, containing only the predicates
// that are present.
func (f TaskFilter) Variables() map[string]any {
	vars := map[string]any{}
	if f.CategoryID != nil {
		vars["category_id"] = *f.CategoryID
	}
	if f.DueDateStart != nil {
		vars["due_date_start"] = *f.DueDateStart
	}
	if f.DueDateEnd != nil {
		vars["due_date_end"] = *f.DueDateEnd
	}
	if f.IncompleteOnly {
		vars["incomplete_only"] = true
	}
	return vars
}

// NewTaskInput is the CreateTask input.
type NewTaskInput struct {
	Title      string  `json:"title"`
	Note       string  `json:"note"`
	CategoryID uint64  `json:"category_id"`
	DueDate    *string `json:"due_date,omitempty"`
}

// Variables wraps the input the way the CreateTask document expects.
func (in NewTaskInput) Variables() map[string]any {
	input := map[string]any{
		"title":       in.Title,
		"note":        in.Note,
		"category_id": in.CategoryID,
	}
	if in.DueDate != nil {
		input["due_date"] = *in.DueDate
	}
	return map[string]any{"input": input}
}

// NewSubTaskInput is the CreateSubTask input.
type NewSubTaskInput struct {
	TaskID  uint64  `json:"task_id"`
	Title   string  `json:"title"`
	Note    *string `json:"note,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
}

// Variables wraps the input the way the CreateSubTask document expects.
func (in NewSubTaskInput) Variables() map[string]any {
	input := map[string]any{
		"task_id": in.TaskID,
		"title":   in.Title,
	}
	if in.Note != nil {
		input["note"] = *in.Note
	}
	if in.DueDate != nil {
		input["due_date"] = *in.DueDate
	}
	return map[string]any{"input": input}
}
