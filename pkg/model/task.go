package model

import "strings"

// SentinelPriority marks a task whose priority score is absent or unparseable.
const SentinelPriority = -999

const (
	NoDescription = "No description"
	NoDueDate     = "No due date"
	NoStatus      = "No status"
	NoStartDate   = "N/A"
)

// Task represents one task file in the local store.
type Task struct {
	Name          string
	Description   string
	PriorityScore int
	DueDate       string // YYYY-MM-DD or NoDueDate
	Tags          string // comma separated, may be empty
	Status        string
	DateAdded     string // ISO-8601, set once on creation
	List          string // remote list the task was pulled from

	// Derived on load, never persisted.
	StartDate string
	FileName  string // base name without extension
	Path      string
}

// HasDueDate reports whether the task carries a concrete due date.
func (t *Task) HasDueDate() bool {
	return t.DueDate != "" && t.DueDate != NoDueDate
}

// HasPriority reports whether the priority score was parsed.
func (t *Task) HasPriority() bool {
	return t.PriorityScore != SentinelPriority
}

// TagList splits the comma separated tags, dropping empty entries.
func (t *Task) TagList() []string {
	var tags []string
	for _, tag := range strings.Split(t.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
