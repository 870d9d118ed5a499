package todo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/server"
	"github.com/ziyixi/tasksync/testutils/fakeserver"
	"github.com/ziyixi/tasksync/transport"
)

func setupLiveClient(t *testing.T, opts ...server.Option) (*Client, *fakeserver.Server) {
	t.Helper()

	srv, endpoint := fakeserver.Start(t, opts...)
	tr, err := transport.NewClient(endpoint)
	require.NoError(t, err)
	return NewClient(tr), srv
}

func TestClient_AgainstServer(t *testing.T) {
	ctx := context.Background()

	t.Run("create echoes the input", func(t *testing.T) {
		client, _ := setupLiveClient(t)

		task, err := client.CreateTask(ctx, TaskForm{Title: "Buy milk", Note: "2%", CategoryID: "2", DueDate: "2025-01-05"})

		require.NoError(t, err)
		assert.Equal(t, "Buy milk", task.Title)
		assert.Equal(t, "2%", task.Note)
		require.NotNil(t, task.CategoryID)
		assert.Equal(t, uint64(2), *task.CategoryID)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "2025-01-05", *task.DueDate)
		assert.Equal(t, schema.Incomplete, task.Completed)
		assert.Equal(t, task.CreatedAt, task.UpdatedAt)
		assert.True(t, task.CompletionConsistent())
	})

	t.Run("update leaves omitted fields untouched", func(t *testing.T) {
		client, _ := setupLiveClient(t)
		created, err := client.CreateTask(ctx, TaskForm{Title: "a", Note: "keep", CategoryID: "1"})
		require.NoError(t, err)

		updated, err := client.EditTask(ctx, EditForm{ID: "1", Title: "b"})

		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "b", updated.Title)
		assert.Equal(t, "keep", updated.Note)
		assert.Equal(t, created.CategoryID, updated.CategoryID)
		assert.Equal(t, created.Completed, updated.Completed)
	})

	t.Run("toggle twice restores the state", func(t *testing.T) {
		client, _ := setupLiveClient(t)
		created, err := client.CreateTask(ctx, TaskForm{Title: "a", Note: "b", CategoryID: "1"})
		require.NoError(t, err)

		done, err := client.ToggleTask(ctx, *created)
		require.NoError(t, err)
		assert.Equal(t, schema.Complete, done.Completed)
		assert.NotNil(t, done.CompletedAt)
		assert.True(t, done.CompletionConsistent())

		undone, err := client.ToggleTask(ctx, *done)
		require.NoError(t, err)
		assert.Equal(t, created.Completed, undone.Completed)
		assert.Nil(t, undone.CompletedAt)
		assert.True(t, undone.CompletionConsistent())
	})

	t.Run("sub-task toggle", func(t *testing.T) {
		client, _ := setupLiveClient(t)
		created, err := client.CreateTask(ctx, TaskForm{Title: "a", Note: "b", CategoryID: "1"})
		require.NoError(t, err)
		sub, err := client.CreateSubTask(ctx, SubTaskForm{TaskID: "1", Title: "step"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, sub.TaskID)

		toggled, err := client.ToggleSubTask(ctx, sub.ID, sub.Completed.Inverse())

		require.NoError(t, err)
		assert.Equal(t, sub.ID, toggled.ID)
		assert.True(t, toggled.Completed.Done())
		assert.True(t, toggled.CompletionConsistent())
	})

	t.Run("filters are a conjunction", func(t *testing.T) {
		client, _ := setupLiveClient(t)
		for _, form := range []TaskForm{
			{Title: "work early", Note: "n", CategoryID: "1", DueDate: "2025-01-01"},
			{Title: "work late", Note: "n", CategoryID: "1", DueDate: "2025-03-01"},
			{Title: "home early", Note: "n", CategoryID: "2", DueDate: "2025-01-01"},
		} {
			_, err := client.CreateTask(ctx, form)
			require.NoError(t, err)
		}
		work := uint64(1)
		end := "2025-01-31"

		tasks, err := client.ListTasks(ctx, schema.TaskFilter{CategoryID: &work, DueDateEnd: &end}, WithPolicy(transport.NetworkOnly))

		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "work early", tasks[0].Title)
	})

	t.Run("deleted task is gone from the list", func(t *testing.T) {
		client, _ := setupLiveClient(t)
		created, err := client.CreateTask(ctx, TaskForm{Title: "a", Note: "b", CategoryID: "1"})
		require.NoError(t, err)
		_, err = client.CreateSubTask(ctx, SubTaskForm{TaskID: "1", Title: "step"})
		require.NoError(t, err)

		deleted, err := client.DeleteTask(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		tasks, err := client.ListTasks(ctx, schema.TaskFilter{}, WithPolicy(transport.NetworkOnly))
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("server errors surface as OperationFailed", func(t *testing.T) {
		client, _ := setupLiveClient(t)

		_, err := client.UpdateTask(ctx, NewTaskPatch(404).SetTitle("x"))

		op, ok := IsOperationFailed(err)
		require.True(t, ok)
		assert.Equal(t, "UpdateTask", op)
	})

	t.Run("id-only update never reaches the server", func(t *testing.T) {
		client, srv := setupLiveClient(t)

		_, err := client.EditTask(ctx, EditForm{ID: "1"})

		assert.ErrorIs(t, err, ErrSkipped)
		assert.Empty(t, srv.Requests())
	})
}

func TestClient_Session(t *testing.T) {
	ctx := context.Background()
	client, _ := setupLiveClient(t, server.RequireAuth())

	_, err := client.ListCategories(ctx)
	_, failed := IsOperationFailed(err)
	require.True(t, failed)

	ok, err := client.Login(ctx, Credentials{Email: server.DemoEmail, Password: server.DemoPassword})
	require.NoError(t, err)
	require.True(t, ok)

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(server.DefaultCategories))

	ok, err = client.Logout(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = client.ListCategories(ctx)
	_, failed = IsOperationFailed(err)
	assert.True(t, failed, "logout must not leave cached categories behind")
}
