package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/todo"
	"github.com/ziyixi/tasksync/utils"
)

// filterFromFlags builds the list filter. Unparsable values are ignored,
// like an empty filter control.
func filterFromFlags(cmd *cobra.Command) schema.TaskFilter {
	var f schema.TaskFilter
	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		if id, ok := utils.ParseID(raw); ok {
			f.CategoryID = &id
		}
	}
	if raw, _ := cmd.Flags().GetString("from"); raw != "" {
		if d, ok := utils.ParseDate(raw); ok {
			f.DueDateStart = &d
		}
	}
	if raw, _ := cmd.Flags().GetString("to"); raw != "" {
		if d, ok := utils.ParseDate(raw); ok {
			f.DueDateEnd = &d
		}
	}
	f.IncompleteOnly, _ = cmd.Flags().GetBool("incomplete")
	return f
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Long:    "List tasks, optionally filtered by category, due date range and completion",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.board.SetFilter(filterFromFlags(cmd))
			if err := s.board.Load(cmd.Context()); err != nil {
				return userError(err)
			}
			printTasks(cmd.OutOrStdout(), s.board, s.board.Tasks())
			return nil
		},
	}
	cmd.Flags().StringP("category", "c", "", "Only tasks of this category id")
	cmd.Flags().String("from", "", "Only tasks due on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Only tasks due on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolP("incomplete", "i", false, "Only incomplete tasks")
	return cmd
}

func newAddCmd() *cobra.Command {
	var form todo.TaskForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			task, err := s.board.CreateTask(cmd.Context(), form)
			if task == nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d: %s\n", task.ID, task.Title)
			return warnRefetch(cmd, err)
		},
	}
	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "Title (required)")
	cmd.Flags().StringVarP(&form.Note, "note", "n", "", "Note (required)")
	cmd.Flags().StringVarP(&form.CategoryID, "category", "c", "", "Category id (required)")
	cmd.Flags().StringVarP(&form.DueDate, "due", "d", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newEditCmd() *cobra.Command {
	var form todo.EditForm
	cmd := &cobra.Command{
		Use:   "edit [task-id]",
		Short: "Change some fields of a task",
		Long:  "Change some fields of a task. Fields left empty are not sent and keep their value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			form.ID = args[0]
			task, err := s.board.EditTask(cmd.Context(), form)
			if task == nil {
				return userError(err)
			}
			printTask(cmd.OutOrStdout(), task)
			return warnRefetch(cmd, err)
		},
	}
	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&form.Note, "note", "n", "", "New note")
	cmd.Flags().StringVarP(&form.CategoryID, "category", "c", "", "New category id")
	cmd.Flags().StringVarP(&form.DueDate, "due", "d", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [task-id]",
		Short: "Toggle the completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := utils.ParseID(args[0])
			if !ok {
				return fmt.Errorf("invalid task ID '%s'", args[0])
			}
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.board.Load(cmd.Context()); err != nil {
				return userError(err)
			}
			current, ok := s.board.Task(id)
			if !ok {
				return fmt.Errorf("task #%d not found", id)
			}

			task, err := s.board.ToggleTask(cmd.Context(), current)
			if task == nil {
				return userError(err)
			}
			if task.Completed.Done() {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked task #%d as done: %s\n", task.ID, task.Title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked task #%d back to todo: %s\n", task.ID, task.Title)
			}
			return warnRefetch(cmd, err)
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [task-id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task and its sub-tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := utils.ParseID(args[0])
			if !ok {
				return fmt.Errorf("invalid task ID '%s'", args[0])
			}
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			deleted, err := s.board.DeleteTask(cmd.Context(), id)
			if err := warnRefetch(cmd, err); err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("task #%d was not deleted", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
			return nil
		},
	}
}
