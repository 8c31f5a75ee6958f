// Package remote defines the contract the reconciliation engine relies on
// to talk to a remote to-do service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TaskList is a named list of tasks on the remote service.
type TaskList struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// DateTimeTimeZone is the remote representation of a due date.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Task is a remote task. Title is the key matched against local task names.
type Task struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	DueDateTime *DateTimeTimeZone `json:"dueDateTime,omitempty"`
}

// DueDate returns the remote due date as YYYY-MM-DD when the value starts
// with a calendar date, the raw value otherwise, and "" when unset.
func (t Task) DueDate() string {
	if t.DueDateTime == nil || t.DueDateTime.DateTime == "" {
		return ""
	}
	value := t.DueDateTime.DateTime
	if len(value) >= 10 {
		if _, err := time.Parse(time.DateOnly, value[:10]); err == nil {
			return value[:10]
		}
	}
	return value
}

// Client is implemented by every remote backend.
type Client interface {
	// ListTaskLists returns every list of the account.
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	// GetOrCreateList returns the id of the list named displayName,
	// creating it when missing.
	GetOrCreateList(ctx context.Context, displayName string) (string, error)
	// ListTasks returns the tasks of a list.
	ListTasks(ctx context.Context, listID string) ([]Task, error)
	// CreateTask creates a task. due is a YYYY-MM-DD date or nil.
	CreateTask(ctx context.Context, listID, title string, due *string) (*Task, error)
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ValidLists drops lists the engine cannot address.
func ValidLists(lists []TaskList) []TaskList {
	valid := lists[:0:0]
	for _, l := range lists {
		if l.ID != "" {
			valid = append(valid, l)
		}
	}
	return valid
}

// ValidTasks drops tasks that cannot be matched by title.
func ValidTasks(tasks []Task) []Task {
	valid := tasks[:0:0]
	for _, t := range tasks {
		if t.Title != "" {
			valid = append(valid, t)
		}
	}
	return valid
}
