// Package overdue finds open tasks whose due date has passed.
package overdue

import (
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

// Entry is an overdue task.
type Entry struct {
	Task     model.Task
	Due      time.Time
	DaysLate int
}

// Sweep returns the tasks due strictly before now's calendar day whose
// status is not doneStatus, oldest due date first. Tasks without a
// parseable due date are never overdue.
func Sweep(tasks []model.Task, now time.Time, doneStatus string) []Entry {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var entries []Entry
	for _, task := range tasks {
		if !task.HasDueDate() || strings.EqualFold(task.Status, doneStatus) {
			continue
		}
		due, err := time.Parse(time.DateOnly, task.DueDate)
		if err != nil || !due.Before(today) {
			continue
		}
		entries = append(entries, Entry{
			Task:     task,
			Due:      due,
			DaysLate: int(today.Sub(due).Hours() / 24),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Due.Before(entries[j].Due)
	})
	return entries
}

// Tasks returns the tasks of entries in order.
func Tasks(entries []Entry) []model.Task {
	tasks := make([]model.Task, len(entries))
	for i, e := range entries {
		tasks[i] = e.Task
	}
	return tasks
}
