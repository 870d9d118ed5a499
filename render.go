package main

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/view"
)

const maxTitleWidth = 38

func checkbox(c schema.Completion) string {
	if c.Done() {
		return "[x]"
	}
	return "[ ]"
}

// dueLabel renders a due date relative to now, e.g. "3 days from now".
func dueLabel(due *string) string {
	if due == nil {
		return "-"
	}
	d, err := time.ParseInLocation(schema.DateLayout, *due, time.Local)
	if err != nil {
		return *due
	}
	return *due + " (" + humanize.Time(d) + ")"
}

// stampLabel renders a server timestamp relative to now.
func stampLabel(ts string) string {
	t, err := time.ParseInLocation(schema.TimestampLayout, ts, time.Local)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

// shorten limits a title to maxTitleWidth runes.
func shorten(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleWidth {
		return s
	}
	return string([]rune(s)[:maxTitleWidth-3]) + "..."
}

func printTasks(w io.Writer, b *view.Board, tasks []schema.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found. Use 'tasksync add' to create one.")
		return
	}
	fmt.Fprintf(w, "%-5s %-3s %-40s %-14s %s\n", "ID", "", "TITLE", "CATEGORY", "DUE")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, task := range tasks {
		fmt.Fprintf(w, "%-5d %-3s %-40s %-14s %s\n",
			task.ID,
			checkbox(task.Completed),
			shorten(task.Title),
			b.CategoryName(task.CategoryID),
			dueLabel(task.DueDate))
		for _, sub := range task.SubTasks {
			fmt.Fprintf(w, "      %s %s (#%d)\n", checkbox(sub.Completed), shorten(sub.Title), sub.ID)
		}
	}
	fmt.Fprintf(w, "%s tasks\n", humanize.Comma(int64(len(tasks))))
}

func printTask(w io.Writer, task *schema.Task) {
	fmt.Fprintf(w, "#%d %s %s\n", task.ID, checkbox(task.Completed), task.Title)
	if task.Note != "" {
		fmt.Fprintf(w, "  note:    %s\n", task.Note)
	}
	fmt.Fprintf(w, "  due:     %s\n", dueLabel(task.DueDate))
	if task.CompletedAt != nil {
		fmt.Fprintf(w, "  done:    %s\n", stampLabel(*task.CompletedAt))
	}
	fmt.Fprintf(w, "  updated: %s\n", stampLabel(task.UpdatedAt))
}
