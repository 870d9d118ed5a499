package todo

import (
	"strings"

	"github.com/badoux/checkmail"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/utils"
)

// TaskForm holds the raw values of the task creation form. Title, note and
// category are required; the due date is optional.
type TaskForm struct {
	Title      string
	Note       string
	CategoryID string
	DueDate    string
}

// Input validates the form and shapes the CreateTask input.
func (f TaskForm) Input() (schema.NewTaskInput, error) {
	title, ok := utils.Trimmed(f.Title)
	if !ok {
		return schema.NewTaskInput{}, ErrSkipped
	}
	note, ok := utils.Trimmed(f.Note)
	if !ok {
		return schema.NewTaskInput{}, ErrSkipped
	}
	categoryID, ok := utils.ParseID(f.CategoryID)
	if !ok {
		return schema.NewTaskInput{}, ErrSkipped
	}
	in := schema.NewTaskInput{Title: title, Note: note, CategoryID: categoryID}
	if strings.TrimSpace(f.DueDate) != "" {
		d, ok := utils.ParseDate(f.DueDate)
		if !ok {
			return schema.NewTaskInput{}, ErrSkipped
		}
		in.DueDate = &d
	}
	return in, nil
}

// SubTaskForm holds the raw values of the sub-task creation form. Task and
// title are required.
type SubTaskForm struct {
	TaskID  string
	Title   string
	Note    string
	DueDate string
}

// Input validates the form and shapes the CreateSubTask input.
func (f SubTaskForm) Input() (schema.NewSubTaskInput, error) {
	taskID, ok := utils.ParseID(f.TaskID)
	if !ok {
		return schema.NewSubTaskInput{}, ErrSkipped
	}
	title, ok := utils.Trimmed(f.Title)
	if !ok {
		return schema.NewSubTaskInput{}, ErrSkipped
	}
	in := schema.NewSubTaskInput{TaskID: taskID, Title: title}
	if note, ok := utils.Trimmed(f.Note); ok {
		in.Note = &note
	}
	if strings.TrimSpace(f.DueDate) != "" {
		d, ok := utils.ParseDate(f.DueDate)
		if !ok {
			return schema.NewSubTaskInput{}, ErrSkipped
		}
		in.DueDate = &d
	}
	return in, nil
}

// Credentials holds the login form.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) variables() (map[string]any, error) {
	email, ok := utils.Trimmed(c.Email)
	if !ok || checkmail.ValidateFormat(email) != nil {
		return nil, ErrSkipped
	}
	if _, ok := utils.Trimmed(c.Password); !ok {
		return nil, ErrSkipped
	}
	return map[string]any{"email": email, "password": c.Password}, nil
}
