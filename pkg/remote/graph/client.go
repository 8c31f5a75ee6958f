// Package graph implements remote.Client on top of the Microsoft Graph
// To Do REST API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/priority-manager/pkg/remote"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const maxErrorBody = 64 * 1024

// Client is a Microsoft To Do client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another Graph endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger logs one line per request: "<METHOD> <url> - <status>".
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client sending requests through httpClient, which is
// expected to add the bearer token.
func New(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{httpClient: httpClient, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithTokenSource creates a client authorizing every request with a
// bearer token from ts.
func NewWithTokenSource(ctx context.Context, ts oauth2.TokenSource, opts ...Option) *Client {
	return New(oauth2.NewClient(ctx, ts), opts...)
}

type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

type createTaskRequest struct {
	Title       string                   `json:"title"`
	DueDateTime *remote.DateTimeTimeZone `json:"dueDateTime,omitempty"`
}

// ListTaskLists returns every To Do list of the signed-in user.
func (c *Client) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	lists, err := listAll[remote.TaskList](ctx, c, c.baseURL+"/me/todo/lists")
	if err != nil {
		return nil, err
	}
	return remote.ValidLists(lists), nil
}

// GetOrCreateList returns the id of the list named displayName.
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

	var created remote.TaskList
	body := map[string]string{"displayName": displayName}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/me/todo/lists", body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("created list %q has no id", displayName)
	}
	return created.ID, nil
}

// ListTasks returns the tasks of listID.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]remote.Task, error) {
	tasks, err := listAll[remote.Task](ctx, c, c.tasksURL(listID))
	if err != nil {
		return nil, err
	}
	return remote.ValidTasks(tasks), nil
}

// CreateTask creates a task in listID. A YYYY-MM-DD due date is sent as
// midnight UTC.
func (c *Client) CreateTask(ctx context.Context, listID, title string, due *string) (*remote.Task, error) {
	req := createTaskRequest{Title: title}
	if due != nil && *due != "" {
		req.DueDateTime = &remote.DateTimeTimeZone{DateTime: formatDue(*due), TimeZone: "UTC"}
	}
	var created remote.Task
	if err := c.do(ctx, http.MethodPost, c.tasksURL(listID), req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) tasksURL(listID string) string {
	return fmt.Sprintf("%s/me/todo/lists/%s/tasks", c.baseURL, url.PathEscape(listID))
}

func formatDue(due string) string {
	if _, err := time.Parse(time.DateOnly, due); err == nil {
		return due + "T00:00:00"
	}
	return due
}

func listAll[T any](ctx context.Context, c *Client, next string) ([]T, error) {
	var all []T
	for next != "" {
		var p page[T]
		if err := c.do(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Value...)
		next = p.NextLink
	}
	return all, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Printf("%s %s - %d", method, endpoint, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &remote.HTTPError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, endpoint, err)
	}
	return nil
}
