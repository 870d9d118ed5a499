package todo

import (
	"sort"

	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/utils"
)

// Patch field names, as sent in the UpdateTask input.
const (
	FieldTitle      = "title"
	FieldNote       = "note"
	FieldCategoryID = "category_id"
	FieldDueDate    = "due_date"
	FieldCompleted  = "completed"
)

// TaskPatch is an UpdateTask input under construction. It starts with only
// the task id; each setter inserts its field only when the source value
// passes its presence check. A field that is absent from the patch is left
// unchanged by the server, so there is no way to clear a field through it.
type TaskPatch struct {
	id     uint64
	fields map[string]any
}

// NewTaskPatch starts an empty patch for the task.
func NewTaskPatch(id uint64) *TaskPatch {
	return &TaskPatch{id: id, fields: map[string]any{}}
}

// SetTitle inserts the title when it is non-empty after trimming.
func (p *TaskPatch) SetTitle(raw string) *TaskPatch {
	if v, ok := utils.Trimmed(raw); ok {
		p.fields[FieldTitle] = v
	}
	return p
}

// SetNote inserts the note when it is non-empty after trimming.
func (p *TaskPatch) SetNote(raw string) *TaskPatch {
	if v, ok := utils.Trimmed(raw); ok {
		p.fields[FieldNote] = v
	}
	return p
}

// SetCategoryID inserts the category when raw parses as an identifier.
func (p *TaskPatch) SetCategoryID(raw string) *TaskPatch {
	if id, ok := utils.ParseID(raw); ok {
		p.fields[FieldCategoryID] = id
	}
	return p
}

// SetDueDate inserts the due date when raw is a valid YYYY-MM-DD date.
func (p *TaskPatch) SetDueDate(raw string) *TaskPatch {
	if d, ok := utils.ParseDate(raw); ok {
		p.fields[FieldDueDate] = d
	}
	return p
}

// SetCompleted always inserts the completion flag: a toggle has no
// "unchanged" value.
func (p *TaskPatch) SetCompleted(c schema.Completion) *TaskPatch {
	p.fields[FieldCompleted] = c
	return p
}

// ID returns the task the patch applies to.
func (p *TaskPatch) ID() uint64 {
	return p.id
}

// Empty reports whether the patch changes nothing.
func (p *TaskPatch) Empty() bool {
	return len(p.fields) == 0
}

// Has reports whether the field is part of the patch.
func (p *TaskPatch) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

// Fields returns the names of the inserted fields in sorted order.
func (p *TaskPatch) Fields() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variables returns the UpdateTask variables.
func (p *TaskPatch) Variables() map[string]any {
	input := make(map[string]any, len(p.fields)+1)
	input["id"] = p.id
	for name, v := range p.fields {
		input[name] = v
	}
	return map[string]any{"input": input}
}

// EditForm holds the raw values of a task edit form.
type EditForm struct {
	ID         string
	Title      string
	Note       string
	CategoryID string
	DueDate    string
}

// Patch builds the patch for the form. It returns ErrSkipped when the id is
// not a valid identifier or no field survives the presence checks.
func (f EditForm) Patch() (*TaskPatch, error) {
	id, ok := utils.ParseID(f.ID)
	if !ok {
		return nil, ErrSkipped
	}
	p := NewTaskPatch(id).
		SetTitle(f.Title).
		SetNote(f.Note).
		SetCategoryID(f.CategoryID).
		SetDueDate(f.DueDate)
	if p.Empty() {
		return nil, ErrSkipped
	}
	return p, nil
}
