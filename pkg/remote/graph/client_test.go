package graph_test

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/priority-manager/pkg/remote"
	"github.com/harrisonrobin/priority-manager/pkg/remote/graph"
	"github.com/harrisonrobin/priority-manager/pkg/remote/remotetest"
)

func newClient(t *testing.T, srv *remotetest.Server, opts ...graph.Option) *graph.Client {
	t.Helper()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"})
	opts = append([]graph.Option{graph.WithBaseURL(srv.URL)}, opts...)
	return graph.NewWithTokenSource(context.Background(), ts, opts...)
}

func TestGetOrCreateList(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Token = "secret"
	existing := srv.AddList("Inbox")
	c := newClient(t, srv)
	ctx := context.Background()

	id, err := c.GetOrCreateList(ctx, "Inbox")
	require.NoError(t, err)
	assert.Equal(t, existing, id)
	assert.Equal(t, 0, srv.CountRequests(http.MethodPost))

	created, err := c.GetOrCreateList(ctx, "Work")
	require.NoError(t, err)
	assert.NotEmpty(t, created)
	assert.Len(t, srv.Lists(), 2)
	assert.Equal(t, 1, srv.CountRequests(http.MethodPost))
}

func TestListTasksFollowsNextLink(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.PageSize = 2
	id := srv.AddList("Inbox")
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		srv.AddTask(id, title, "")
	}
	srv.AddTask(id, "", "")

	tasks, err := newClient(t, srv).ListTasks(context.Background(), id)
	require.NoError(t, err)

	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, titles)
	assert.Equal(t, 3, srv.CountRequests(http.MethodGet))
}

func TestCreateTaskDueDate(t *testing.T) {
	srv := remotetest.NewServer(t)
	id := srv.AddList("Inbox")
	c := newClient(t, srv)
	ctx := context.Background()

	due := "2025-03-01"
	_, err := c.CreateTask(ctx, id, "Dated", &due)
	require.NoError(t, err)
	_, err = c.CreateTask(ctx, id, "Undated", nil)
	require.NoError(t, err)

	tasks := srv.Tasks(id)
	require.Len(t, tasks, 2)
	require.NotNil(t, tasks[0].DueDateTime)
	assert.Equal(t, "2025-03-01T00:00:00", tasks[0].DueDateTime.DateTime)
	assert.Equal(t, "UTC", tasks[0].DueDateTime.TimeZone)
	assert.Equal(t, "2025-03-01", tasks[0].DueDate())
	assert.Nil(t, tasks[1].DueDateTime)
}

func TestUnauthorized(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Token = "other"
	_, err := newClient(t, srv).ListTaskLists(context.Background())
	require.Error(t, err)
	assert.True(t, remote.IsUnauthorized(err))

	var httpErr *remote.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Contains(t, httpErr.Body, "invalid_token")
}

func TestFailingList(t *testing.T) {
	srv := remotetest.NewServer(t)
	id := srv.AddList("Broken")
	srv.FailList(id, http.StatusInternalServerError)

	_, err := newClient(t, srv).ListTasks(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode(err))
	assert.False(t, remote.IsUnauthorized(err))
}

func TestRequestLog(t *testing.T) {
	srv := remotetest.NewServer(t)
	var buf bytes.Buffer
	c := newClient(t, srv, graph.WithLogger(log.New(&buf, "", 0)))

	_, err := c.ListTaskLists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GET "+srv.URL+"/me/todo/lists - 200\n", buf.String())
}
