package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskForm_Input(t *testing.T) {
	t.Run("trims and parses", func(t *testing.T) {
		in, err := TaskForm{Title: " Buy milk ", Note: "2%", CategoryID: " 3 "}.Input()

		require.NoError(t, err)
		assert.Equal(t, "Buy milk", in.Title)
		assert.Equal(t, "2%", in.Note)
		assert.Equal(t, uint64(3), in.CategoryID)
		assert.Nil(t, in.DueDate)
		assert.NotContains(t, in.Variables()["input"], "due_date")
	})

	t.Run("due date when given", func(t *testing.T) {
		in, err := TaskForm{Title: "a", Note: "b", CategoryID: "1", DueDate: "2025-03-04"}.Input()

		require.NoError(t, err)
		require.NotNil(t, in.DueDate)
		assert.Equal(t, "2025-03-04", *in.DueDate)
	})

	tests := []struct {
		name string
		form TaskForm
	}{
		{name: "missing title", form: TaskForm{Title: "  ", Note: "n", CategoryID: "1"}},
		{name: "missing note", form: TaskForm{Title: "t", Note: "", CategoryID: "1"}},
		{name: "missing category", form: TaskForm{Title: "t", Note: "n"}},
		{name: "non-numeric category", form: TaskForm{Title: "t", Note: "n", CategoryID: "work"}},
		{name: "non-finite category", form: TaskForm{Title: "t", Note: "n", CategoryID: "Infinity"}},
		{name: "invalid due date", form: TaskForm{Title: "t", Note: "n", CategoryID: "1", DueDate: "2025-13-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Input()
			assert.ErrorIs(t, err, ErrSkipped)
		})
	}
}

func TestSubTaskForm_Input(t *testing.T) {
	t.Run("note is optional", func(t *testing.T) {
		in, err := SubTaskForm{TaskID: "4", Title: " step "}.Input()

		require.NoError(t, err)
		assert.Equal(t, uint64(4), in.TaskID)
		assert.Equal(t, "step", in.Title)
		assert.Nil(t, in.Note)
		assert.Equal(t, map[string]any{"input": map[string]any{"task_id": uint64(4), "title": "step"}}, in.Variables())
	})

	t.Run("note and due date", func(t *testing.T) {
		in, err := SubTaskForm{TaskID: "4", Title: "step", Note: " n ", DueDate: "2025-01-02"}.Input()

		require.NoError(t, err)
		require.NotNil(t, in.Note)
		assert.Equal(t, "n", *in.Note)
		require.NotNil(t, in.DueDate)
		assert.Equal(t, "2025-01-02", *in.DueDate)
	})

	t.Run("invalid task id", func(t *testing.T) {
		_, err := SubTaskForm{TaskID: "x", Title: "step"}.Input()
		assert.ErrorIs(t, err, ErrSkipped)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := SubTaskForm{TaskID: "1"}.Input()
		assert.ErrorIs(t, err, ErrSkipped)
	})
}

func TestCredentials(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		vars, err := Credentials{Email: " user@example.com ", Password: "secret"}.variables()

		require.NoError(t, err)
		assert.Equal(t, "user@example.com", vars["email"])
		assert.Equal(t, "secret", vars["password"])
	})

	t.Run("malformed email", func(t *testing.T) {
		_, err := Credentials{Email: "not-an-email", Password: "secret"}.variables()
		assert.ErrorIs(t, err, ErrSkipped)
	})

	t.Run("blank password", func(t *testing.T) {
		_, err := Credentials{Email: "user@example.com", Password: "   "}.variables()
		assert.ErrorIs(t, err, ErrSkipped)
	})
}
