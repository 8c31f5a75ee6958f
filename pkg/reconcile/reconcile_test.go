package reconcile_test

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/reconcile"
	"github.com/harrisonrobin/priority-manager/pkg/remote/graph"
	"github.com/harrisonrobin/priority-manager/pkg/remote/remotetest"
	"github.com/harrisonrobin/priority-manager/pkg/store"
)

var statuses = []string{"To Do", "In Progress", "Complete"}

type fixture struct {
	srv    *remotetest.Server
	store  *store.Store
	engine *reconcile.Engine
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	srv := remotetest.NewServer(t)
	srv.Token = "OK"

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "OK"})
	client := graph.NewWithTokenSource(context.Background(), ts, graph.WithBaseURL(srv.URL))
	st := store.New(filepath.Join(dir, "tasks"), filepath.Join(dir, "archive"), statuses)
	require.NoError(t, st.EnsureDirs())

	logs := &bytes.Buffer{}
	return &fixture{
		srv:   srv,
		store: st,
		logs:  logs,
		engine: &reconcile.Engine{
			Store:      st,
			Remote:     client,
			OpenStatus: "To Do",
			Logger:     log.New(logs, "", 0),
		},
	}
}

func (f *fixture) sync(t *testing.T, req reconcile.Request) reconcile.Result {
	t.Helper()
	res, err := f.engine.Sync(context.Background(), req)
	require.NoError(t, err)
	return res
}

func (f *fixture) listDirs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.store.Dir)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		push, pull, both bool
		want             reconcile.Mode
		wantErr          bool
	}{
		{want: reconcile.Push},
		{push: true, want: reconcile.Push},
		{pull: true, want: reconcile.Pull},
		{both: true, want: reconcile.Both},
		{push: true, pull: true, wantErr: true},
		{pull: true, both: true, wantErr: true},
	}
	for _, tt := range tests {
		got, err := reconcile.ParseMode(tt.push, tt.pull, tt.both)
		if tt.wantErr {
			assert.ErrorIs(t, err, reconcile.ErrUsageConflict)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPullSingleList(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddList("Priority Manager")
	f.srv.AddTask(id, "Remote A", "2025-03-01T00:00:00.0000000")
	f.srv.AddTask(id, "Remote B", "")

	res := f.sync(t, reconcile.Request{Mode: reconcile.Pull, ListName: "Priority Manager"})
	assert.Equal(t, 2, res.Pulled)

	tasks, err := f.store.List(store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	byName := map[string]model.Task{}
	for _, task := range tasks {
		byName[task.Name] = task
	}

	a := byName["Remote A"]
	assert.Equal(t, reconcile.PulledDescription, a.Description)
	assert.Equal(t, 0, a.PriorityScore)
	assert.Equal(t, "To Do", a.Status)
	assert.Equal(t, "2025-03-01", a.DueDate)
	assert.Empty(t, a.List)
	assert.Equal(t, model.NoDueDate, byName["Remote B"].DueDate)

	res = f.sync(t, reconcile.Request{Mode: reconcile.Pull, ListName: "Priority Manager"})
	assert.Equal(t, 0, res.Pulled)
}

func TestPush(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddList("Priority Manager")
	f.srv.AddTask(id, "Already there", "")

	for _, task := range []model.Task{
		{Name: "Dated", DueDate: "2025-03-01", Status: "To Do"},
		{Name: "Undated", DueDate: model.NoDueDate, Status: "To Do"},
		{Name: "Already there", DueDate: model.NoDueDate, Status: "To Do"},
		{Name: "Other list", DueDate: model.NoDueDate, Status: "To Do", List: "Groceries"},
	} {
		_, err := f.store.Create(task)
		require.NoError(t, err)
	}

	res := f.sync(t, reconcile.Request{ListName: "Priority Manager"})
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, 1, res.RemoteExisting)
	assert.Equal(t, 0, res.Pulled)

	due := map[string]string{}
	for _, rt := range f.srv.Tasks(id) {
		due[rt.Title] = rt.DueDate()
	}
	assert.Equal(t, map[string]string{"Already there": "", "Dated": "2025-03-01", "Undated": ""}, due)

	res = f.sync(t, reconcile.Request{ListName: "Priority Manager"})
	assert.Equal(t, 0, res.Pushed)
	assert.Equal(t, 3, res.RemoteExisting)
}

func TestPushCreatesMissingList(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(model.Task{Name: "Only local", DueDate: model.NoDueDate})
	require.NoError(t, err)

	res := f.sync(t, reconcile.Request{Mode: reconcile.Push, ListName: "Fresh"})
	assert.Equal(t, 1, res.Pushed)
	require.Len(t, f.srv.Lists(), 1)
	assert.Equal(t, "Fresh", f.srv.Lists()[0].DisplayName)
}

func TestBoth(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddList("Priority Manager")
	f.srv.AddTask(id, "From remote", "")
	_, err := f.store.Create(model.Task{Name: "From local", DueDate: model.NoDueDate})
	require.NoError(t, err)

	res := f.sync(t, reconcile.Request{Mode: reconcile.Both, ListName: "Priority Manager"})
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Pulled)

	res = f.sync(t, reconcile.Request{Mode: reconcile.Both, ListName: "Priority Manager"})
	assert.Equal(t, 0, res.Pushed)
	assert.Equal(t, 0, res.Pulled)
	assert.Equal(t, 2, res.RemoteExisting)
}

func TestPullSeesTasksInFolders(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddList("Priority Manager")
	f.srv.AddTask(id, "Write report", "")
	_, err := f.store.Create(model.Task{Name: "Write report", DueDate: model.NoDueDate}, "Work")
	require.NoError(t, err)

	res := f.sync(t, reconcile.Request{Mode: reconcile.Both, ListName: "Priority Manager"})
	assert.Equal(t, 0, res.Pushed)
	assert.Equal(t, 1, res.RemoteExisting)
	assert.Equal(t, 0, res.Pulled)

	auto, err := f.store.AutoRecursive()
	require.NoError(t, err)
	assert.True(t, auto, "no task written at the top level")
}

func TestBothAllListsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedTwoLists(f)
	_, err := f.store.Create(model.Task{Name: "Local A", DueDate: model.NoDueDate})
	require.NoError(t, err)
	req := reconcile.Request{Mode: reconcile.Both, ListName: "Priority Manager", AllLists: true}

	res := f.sync(t, req)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 4, res.Pulled)

	res = f.sync(t, req)
	assert.Equal(t, 0, res.Pushed)
	assert.Equal(t, 0, res.Pulled)

	tasks, err := f.store.List(store.ListOptions{})
	require.NoError(t, err)
	var copies int
	for _, task := range tasks {
		if task.Name == "Local A" {
			copies++
		}
	}
	assert.Equal(t, 1, copies)
}

func seedTwoLists(f *fixture) (alpha, beta string) {
	alpha = f.srv.AddList("List Alpha")
	beta = f.srv.AddList("List Beta")
	f.srv.AddTask(alpha, "Alpha Task 1", "")
	f.srv.AddTask(alpha, "Shared Title", "")
	f.srv.AddTask(beta, "Beta Task 1", "")
	f.srv.AddTask(beta, "Shared Title", "")
	return alpha, beta
}

func TestPullAllListsFolders(t *testing.T) {
	f := newFixture(t)
	seedTwoLists(f)
	req := reconcile.Request{Mode: reconcile.Pull, AllLists: true, Folders: true}

	res := f.sync(t, req)
	assert.Equal(t, 4, res.Pulled)
	assert.Equal(t, []string{"List_Alpha", "List_Beta"}, f.listDirs(t))

	for _, dir := range f.listDirs(t) {
		entries, err := os.ReadDir(filepath.Join(f.store.Dir, dir))
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(f.store.Dir, dir, e.Name()))
			require.NoError(t, err)
			assert.Contains(t, string(data), "**List:**")
		}
	}

	res = f.sync(t, req)
	assert.Equal(t, 0, res.Pulled)
}

func TestPullAllListsFileNames(t *testing.T) {
	f := newFixture(t)
	seedTwoLists(f)
	req := reconcile.Request{Mode: reconcile.Pull, AllLists: true}

	res := f.sync(t, req)
	assert.Equal(t, 4, res.Pulled)
	assert.Empty(t, f.listDirs(t))

	tasks, err := f.store.List(store.ListOptions{})
	require.NoError(t, err)
	var shared []string
	for _, task := range tasks {
		if task.Name == "Shared Title" {
			shared = append(shared, task.List)
			assert.True(t, strings.Contains(task.FileName, "__Shared_Title"), task.FileName)
		}
	}
	sort.Strings(shared)
	assert.Equal(t, []string{"List Alpha", "List Beta"}, shared)

	res = f.sync(t, req)
	assert.Equal(t, 0, res.Pulled)
}

func TestUnauthorizedWritesNothing(t *testing.T) {
	f := newFixture(t)
	seedTwoLists(f)
	f.srv.SetUnauthorized(true)

	for _, req := range []reconcile.Request{
		{Mode: reconcile.Pull, ListName: "List Alpha"},
		{Mode: reconcile.Pull, AllLists: true, Folders: true},
		{Mode: reconcile.Both, ListName: "List Alpha", AllLists: true},
	} {
		_, err := f.engine.Sync(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, reconcile.ErrUnauthorized)
	}

	entries, err := os.ReadDir(f.store.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, f.srv.CountRequests(http.MethodPost))
}

func TestUnauthorizedOnOneListAborts(t *testing.T) {
	f := newFixture(t)
	_, beta := seedTwoLists(f)
	f.srv.FailList(beta, http.StatusUnauthorized)

	_, err := f.engine.Sync(context.Background(), reconcile.Request{Mode: reconcile.Pull, AllLists: true})
	assert.ErrorIs(t, err, reconcile.ErrUnauthorized)

	entries, err := os.ReadDir(f.store.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFailingListIsSkipped(t *testing.T) {
	f := newFixture(t)
	_, beta := seedTwoLists(f)
	f.srv.FailList(beta, http.StatusInternalServerError)
	f.engine.Verbose = true

	res := f.sync(t, reconcile.Request{Mode: reconcile.Pull, AllLists: true, Folders: true})
	assert.Equal(t, 2, res.Pulled)
	assert.Equal(t, []string{"List Beta"}, res.SkippedLists)
	assert.Equal(t, []string{"List_Alpha"}, f.listDirs(t))
	assert.Contains(t, f.logs.String(), `Skipping list "List Beta"`)
	assert.Contains(t, f.logs.String(), "serviceError")
}
