// Package gtasks implements remote.Client on top of the Google Tasks API.
package gtasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/priority-manager/pkg/remote"
)

// Scopes are the OAuth scopes the client needs.
var Scopes = []string{tasks.TasksScope}

// Client is a Google Tasks client.
type Client struct {
	srv *tasks.Service
}

// NewClient creates a client using an authorized HTTP client. Extra options
// such as option.WithEndpoint are passed to the service.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Tasks client: %w", err)
	}
	return &Client{srv: srv}, nil
}

// ListTaskLists returns every task list of the account.
func (c *Client) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	var lists []remote.TaskList
	err := c.srv.Tasklists.List().MaxResults(100).Pages(ctx, func(page *tasks.TaskLists) error {
		for _, item := range page.Items {
			lists = append(lists, remote.TaskList{ID: item.Id, DisplayName: item.Title})
		}
		return nil
	})
	if err != nil {
		return nil, wrap(http.MethodGet, "tasklists", err)
	}
	return remote.ValidLists(lists), nil
}

// GetOrCreateList returns the id of the list titled displayName.
func (c *Client) GetOrCreateList(ctx context.Context, displayName string) (string, error) {
	lists, err := c.ListTaskLists(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range lists {
		if l.DisplayName == displayName {
			return l.ID, nil
		}
	}

	created, err := c.srv.Tasklists.Insert(&tasks.TaskList{Title: displayName}).Context(ctx).Do()
	if err != nil {
		return "", wrap(http.MethodPost, "tasklists", err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("created list %q has no id", displayName)
	}
	return created.Id, nil
}

// ListTasks returns the tasks of listID, completed ones included.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]remote.Task, error) {
	var out []remote.Task
	call := c.srv.Tasks.List(listID).ShowCompleted(true).ShowHidden(true).MaxResults(100)
	err := call.Pages(ctx, func(page *tasks.Tasks) error {
		for _, item := range page.Items {
			out = append(out, fromAPI(item))
		}
		return nil
	})
	if err != nil {
		return nil, wrap(http.MethodGet, "tasks/"+listID, err)
	}
	return remote.ValidTasks(out), nil
}

// CreateTask inserts a task. Google Tasks stores due dates as RFC 3339
// timestamps at midnight UTC.
func (c *Client) CreateTask(ctx context.Context, listID, title string, due *string) (*remote.Task, error) {
	item := &tasks.Task{Title: title}
	if due != nil && *due != "" {
		item.Due = formatDue(*due)
	}
	created, err := c.srv.Tasks.Insert(listID, item).Context(ctx).Do()
	if err != nil {
		return nil, wrap(http.MethodPost, "tasks/"+listID, err)
	}
	t := fromAPI(created)
	return &t, nil
}

func fromAPI(item *tasks.Task) remote.Task {
	t := remote.Task{ID: item.Id, Title: item.Title}
	if item.Due != "" {
		t.DueDateTime = &remote.DateTimeTimeZone{DateTime: item.Due, TimeZone: "UTC"}
	}
	return t
}

func formatDue(due string) string {
	d, err := time.Parse(time.DateOnly, due)
	if err != nil {
		return due
	}
	return d.UTC().Format(time.RFC3339)
}

// wrap converts API errors into remote.HTTPError so callers can tell a
// rejected token from other failures.
func wrap(method, resource string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &remote.HTTPError{
			Method:     method,
			URL:        resource,
			StatusCode: gerr.Code,
			Body:       gerr.Body,
		}
	}
	return fmt.Errorf("%s %s: %w", method, resource, err)
}
