// Package reconcile synchronizes the local task store with a remote to-do
// service. Tasks are matched by title only; nothing is ever deleted or
// overwritten on either side.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/remote"
	"github.com/harrisonrobin/priority-manager/pkg/store"
	"github.com/harrisonrobin/priority-manager/pkg/taskfile"
)

// PulledDescription is the description of every pulled task.
const PulledDescription = "Pulled from remote service"

// Mode selects the direction of a sync.
type Mode string

const (
	Push Mode = "push"
	Pull Mode = "pull"
	Both Mode = "both"
)

var (
	// ErrUsageConflict is returned when more than one mode is requested.
	ErrUsageConflict = errors.New("only one of push, pull or both may be requested")
	// ErrUnauthorized is returned when the remote rejects the token.
	ErrUnauthorized = errors.New("unauthorized (401)")
)

// ParseMode turns the mode flags into a Mode. No flag means Push.
func ParseMode(push, pull, both bool) (Mode, error) {
	n := 0
	mode := Push
	for _, f := range []struct {
		set  bool
		mode Mode
	}{{push, Push}, {pull, Pull}, {both, Both}} {
		if f.set {
			n++
			mode = f.mode
		}
	}
	if n > 1 {
		return "", ErrUsageConflict
	}
	return mode, nil
}

func (m Mode) pushes() bool { return m == Push || m == Both }
func (m Mode) pulls() bool  { return m == Pull || m == Both }

// Request describes one sync run.
type Request struct {
	Mode Mode
	// ListName is the remote list pushed to, and pulled from unless
	// AllLists is set.
	ListName string
	// AllLists pulls every remote list, deduplicating on title and list.
	AllLists bool
	// Folders writes tasks pulled with AllLists into one sub-directory per
	// list instead of embedding the list name in the file name.
	Folders bool
}

// Result counts what a sync did.
type Result struct {
	Pushed         int
	Pulled         int
	RemoteExisting int
	// SkippedLists names the lists whose tasks could not be fetched.
	SkippedLists []string
}

// Engine runs syncs between a store and a remote client.
type Engine struct {
	Store  *store.Store
	Remote remote.Client
	// OpenStatus is the status given to pulled tasks.
	OpenStatus string
	Logger     *log.Logger
	// Verbose logs the response body of failed list fetches.
	Verbose bool
}

type remoteList struct {
	list  remote.TaskList
	tasks []remote.Task
}

type snapshot struct {
	targetID string
	target   []remote.Task
	lists    []remoteList
}

// Sync runs req. Every remote read happens before the first write, so a
// rejected token leaves both sides untouched.
func (e *Engine) Sync(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.Mode == "" {
		req.Mode = Push
	}

	snap, err := e.fetch(ctx, req, &res)
	if err != nil {
		return res, err
	}

	if req.Mode.pushes() {
		if err := e.push(ctx, req, snap, &res); err != nil {
			return res, err
		}
	}
	if req.Mode.pulls() {
		if req.AllLists {
			err = e.pullAll(req, snap, &res)
		} else {
			err = e.pullOne(snap, &res)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) fetch(ctx context.Context, req Request, res *Result) (*snapshot, error) {
	snap := &snapshot{}

	if req.Mode.pushes() || !req.AllLists {
		id, err := e.Remote.GetOrCreateList(ctx, req.ListName)
		if err != nil {
			return nil, classify(err, "resolve list "+req.ListName)
		}
		tasks, err := e.Remote.ListTasks(ctx, id)
		if err != nil {
			return nil, classify(err, "list tasks of "+req.ListName)
		}
		snap.targetID = id
		snap.target = tasks
	}

	if req.Mode.pulls() && req.AllLists {
		lists, err := e.Remote.ListTaskLists(ctx)
		if err != nil {
			return nil, classify(err, "list task lists")
		}
		for _, l := range lists {
			tasks, err := e.Remote.ListTasks(ctx, l.ID)
			if remote.IsUnauthorized(err) {
				return nil, classify(err, "list tasks of "+l.DisplayName)
			}
			if err != nil {
				e.skip(l, err)
				res.SkippedLists = append(res.SkippedLists, l.DisplayName)
				continue
			}
			snap.lists = append(snap.lists, remoteList{list: l, tasks: tasks})
		}
	}
	return snap, nil
}

func (e *Engine) push(ctx context.Context, req Request, snap *snapshot, res *Result) error {
	local, err := e.localTasks(req.Folders)
	if err != nil {
		return err
	}

	titles := make(map[string]bool, len(snap.target))
	for _, t := range snap.target {
		titles[t.Title] = true
	}

	for _, task := range local {
		// Tasks pulled from another list belong to that list.
		if task.List != "" && task.List != req.ListName {
			continue
		}
		if titles[task.Name] {
			res.RemoteExisting++
			continue
		}
		var due *string
		if task.HasDueDate() {
			d := task.DueDate
			due = &d
		}
		if _, err := e.Remote.CreateTask(ctx, snap.targetID, task.Name, due); err != nil {
			return classify(err, "create task "+task.Name)
		}
		titles[task.Name] = true
		res.Pushed++
	}
	return nil
}

func (e *Engine) pullOne(snap *snapshot, res *Result) error {
	local, err := e.localTasks(false)
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(local))
	for _, t := range local {
		names[t.Name] = true
	}

	for _, rt := range snap.target {
		if names[rt.Title] {
			continue
		}
		if _, err := e.Store.Create(e.pulled(rt, "")); err != nil {
			return err
		}
		names[rt.Title] = true
		res.Pulled++
	}
	return nil
}

type pairKey struct {
	name string
	list string
}

func (e *Engine) pullAll(req Request, snap *snapshot, res *Result) error {
	local, err := e.localTasks(req.Folders)
	if err != nil {
		return err
	}
	seen := make(map[pairKey]bool, len(local))
	for _, t := range local {
		seen[pairKey{t.Name, t.List}] = true
		// Tasks without a list origin are the ones push sends to the
		// target list.
		if t.List == "" && req.ListName != "" {
			seen[pairKey{t.Name, req.ListName}] = true
		}
	}

	for _, rl := range snap.lists {
		name := rl.list.DisplayName
		for _, rt := range rl.tasks {
			key := pairKey{rt.Title, name}
			if seen[key] {
				continue
			}

			var path string
			if req.Folders {
				path, err = e.Store.NewTaskPath(rt.Title, taskfile.Slug(name))
			} else {
				path, err = e.Store.NewListTaskPath(name, rt.Title)
			}
			if err != nil {
				return err
			}
			if _, err := e.Store.CreateAt(path, e.pulled(rt, name)); err != nil {
				return err
			}
			seen[key] = true
			res.Pulled++
		}
	}
	return nil
}

func (e *Engine) pulled(rt remote.Task, list string) model.Task {
	due := rt.DueDate()
	if due == "" {
		due = model.NoDueDate
	}
	return model.Task{
		Name:          rt.Title,
		List:          list,
		Description:   PulledDescription,
		PriorityScore: 0,
		DueDate:       due,
		Status:        e.OpenStatus,
	}
}

// localTasks lists the store recursively when asked to or when the top
// level only holds folders.
func (e *Engine) localTasks(recursive bool) ([]model.Task, error) {
	if !recursive {
		auto, err := e.Store.AutoRecursive()
		if err != nil {
			return nil, err
		}
		recursive = auto
	}
	return e.Store.List(store.ListOptions{Recursive: recursive})
}

func (e *Engine) skip(l remote.TaskList, err error) {
	logger := e.logger()
	logger.Printf("Skipping list %q: %v", l.DisplayName, err)
	var httpErr *remote.HTTPError
	if e.Verbose && errors.As(err, &httpErr) && httpErr.Body != "" {
		logger.Printf("Response body: %s", httpErr.Body)
	}
}

func (e *Engine) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

func classify(err error, op string) error {
	if remote.IsUnauthorized(err) {
		return fmt.Errorf("%w: %s: %w", ErrUnauthorized, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
