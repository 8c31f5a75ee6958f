// Package view renders tasks as terminal tables.
package view

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/harrisonrobin/priority-manager/pkg/colors"
	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/taskfile"
)

// IndexHeader heads the 1-based selection column.
const IndexHeader = "#"

// Column is a displayed field and the width it is cut to. A MaxLength of
// zero disables truncation.
type Column struct {
	Name      string
	MaxLength int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	highStyle   = cellStyle.Foreground(lipgloss.Color("9"))
	mediumStyle = cellStyle.Foreground(lipgloss.Color("11"))
	lowStyle    = cellStyle.Foreground(lipgloss.Color("10"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("8"))
)

// Value returns the text shown for column of t.
func Value(t model.Task, column string) string {
	switch column {
	case taskfile.LabelName, "Task Name":
		return t.Name
	case taskfile.LabelList:
		return t.List
	case taskfile.LabelDescription:
		return t.Description
	case taskfile.LabelPriority:
		return strconv.Itoa(t.PriorityScore)
	case taskfile.LabelDueDate:
		return t.DueDate
	case taskfile.LabelTags:
		return t.Tags
	case taskfile.LabelDateAdded:
		return t.DateAdded
	case taskfile.LabelStatus:
		return t.Status
	case "Start Date":
		return t.StartDate
	case "File":
		return t.FileName
	}
	return ""
}

// Truncate cuts s to limit runes, ending it with "..." when cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

// Rows returns the cells of tasks, each row led by its 1-based index.
func Rows(tasks []model.Task, columns []Column) [][]string {
	rows := make([][]string, 0, len(tasks))
	for i, t := range tasks {
		row := []string{strconv.Itoa(i + 1)}
		for _, c := range columns {
			row = append(row, Truncate(Value(t, c.Name), c.MaxLength))
		}
		rows = append(rows, row)
	}
	return rows
}

// Table writes tasks in the given order. listColors may be nil.
func Table(w io.Writer, tasks []model.Task, columns []Column, listColors *colors.Cache) error {
	headers := []string{IndexHeader}
	for _, c := range columns {
		headers = append(headers, c.Name)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(Rows(tasks, columns)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(tasks) || col == 0 {
				return cellStyle
			}
			task := tasks[row]
			switch columns[col-1].Name {
			case taskfile.LabelPriority:
				return priorityStyle(task)
			case taskfile.LabelList:
				return cellStyle.Foreground(lipgloss.Color(listColors.ColorID(task.List)))
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func priorityStyle(t model.Task) lipgloss.Style {
	switch {
	case !t.HasPriority():
		return mutedStyle
	case t.PriorityScore >= 15:
		return highStyle
	case t.PriorityScore >= 8:
		return mediumStyle
	default:
		return lowStyle
	}
}
