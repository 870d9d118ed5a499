package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/todo"
	"github.com/ziyixi/tasksync/utils"
	"github.com/ziyixi/tasksync/view"
)

func newSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Work with sub-tasks",
	}
	cmd.AddCommand(newSubAddCmd(), newSubToggleCmd())
	return cmd
}

func newSubAddCmd() *cobra.Command {
	var form todo.SubTaskForm
	cmd := &cobra.Command{
		Use:   "add [task-id]",
		Short: "Add a sub-task to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			form.TaskID = args[0]
			sub, err := s.board.CreateSubTask(cmd.Context(), form)
			if sub == nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added sub-task #%d to task #%d: %s\n", sub.ID, sub.TaskID, sub.Title)
			return warnRefetch(cmd, err)
		},
	}
	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "Title (required)")
	cmd.Flags().StringVarP(&form.Note, "note", "n", "", "Note")
	cmd.Flags().StringVarP(&form.DueDate, "due", "d", "", "Due date (YYYY-MM-DD)")
	return cmd
}

// findSubTask looks a sub-task up in the loaded list.
func findSubTask(b *view.Board, id uint64) (schema.SubTask, bool) {
	for _, task := range b.Tasks() {
		for _, sub := range task.SubTasks {
			if sub.ID == id {
				return sub, true
			}
		}
	}
	return schema.SubTask{}, false
}

func newSubToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [sub-task-id]",
		Short: "Toggle the completion of a sub-task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := utils.ParseID(args[0])
			if !ok {
				return fmt.Errorf("invalid sub-task ID '%s'", args[0])
			}
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.board.Load(cmd.Context()); err != nil {
				return userError(err)
			}
			current, ok := findSubTask(s.board, id)
			if !ok {
				return fmt.Errorf("sub-task #%d not found", id)
			}

			sub, err := s.board.ToggleSubTask(cmd.Context(), current)
			if sub == nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sub-task #%d %s %s\n", sub.ID, checkbox(sub.Completed), current.Title)
			return warnRefetch(cmd, err)
		},
	}
}
