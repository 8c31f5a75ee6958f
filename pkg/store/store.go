// Package store manages the directory of task files.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/priority-manager/pkg/model"
	"github.com/harrisonrobin/priority-manager/pkg/taskfile"
)

// ErrNotFound is returned when a selection does not match any task.
var ErrNotFound = errors.New("task not found")

// Store is a directory of task files plus the archive directory they are
// moved to.
type Store struct {
	Dir        string
	ArchiveDir string
	Codec      taskfile.Codec

	// Now is the clock used for file names and Date Added values.
	Now func() time.Time
}

// New creates a store rooted at dir. statuses is the recognized status set.
func New(dir, archiveDir string, statuses []string) *Store {
	return &Store{
		Dir:        dir,
		ArchiveDir: archiveDir,
		Codec:      taskfile.Codec{Statuses: statuses},
		Now:        time.Now,
	}
}

// EnsureDirs creates the task and archive directories.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.Dir, s.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ListOptions controls List.
type ListOptions struct {
	// Recursive walks every subdirectory instead of only the top level.
	Recursive bool
	// Status keeps only tasks whose status matches case-insensitively.
	Status string
}

// List decodes the task files of the store. A missing directory yields an
// empty result.
func (s *Store) List(opts ListOptions) ([]model.Task, error) {
	paths, err := s.files(opts.Recursive)
	if err != nil {
		return nil, err
	}

	var tasks []model.Task
	for _, path := range paths {
		task, err := s.Codec.DecodeFile(path)
		if err != nil {
			log.Printf("Warning: skipping unreadable task file %s: %v", path, err)
			continue
		}
		if opts.Status != "" && !strings.EqualFold(task.Status, opts.Status) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *Store) files(recursive bool) ([]string, error) {
	var paths []string
	if recursive {
		err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == s.Dir && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}
			if isTaskFile(d) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", s.Dir, err)
		}
		return paths, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.Dir, err)
	}
	for _, entry := range entries {
		if isTaskFile(entry) {
			paths = append(paths, filepath.Join(s.Dir, entry.Name()))
		}
	}
	return paths, nil
}

// isTaskFile skips everything but regular ".md" files, staging files of
// Rewrite included.
func isTaskFile(d fs.DirEntry) bool {
	return d.Type().IsRegular() && filepath.Ext(d.Name()) == taskfile.Ext
}

// AutoRecursive reports whether the top level holds no task files but
// does hold subdirectories, in which case callers should list recursively.
func (s *Store) AutoRecursive() (bool, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	var hasDirs bool
	for _, entry := range entries {
		switch {
		case isTaskFile(entry):
			return false, nil
		case entry.IsDir():
			hasDirs = true
		}
	}
	return hasDirs, nil
}

// NewTaskPath returns a path for a new task file named after name, inside
// the sanitized sub-folder segments if any. Folders are created as needed
// and the returned path does not exist yet.
func (s *Store) NewTaskPath(name string, folders ...string) (string, error) {
	return s.newPath(taskfile.Slug(name), folders)
}

// NewListTaskPath returns a path whose file name embeds the list slug:
// "<timestamp>_<listSlug>__<taskSlug>.md".
func (s *Store) NewListTaskPath(listName, title string) (string, error) {
	return s.newPath(taskfile.Slug(listName)+"__"+taskfile.Slug(title), nil)
}

func (s *Store) newPath(slug string, folders []string) (string, error) {
	dir := s.Dir
	var segments []string
	for _, folder := range folders {
		segments = append(segments, taskfile.SanitizePath(folder)...)
	}
	if len(segments) > 0 {
		dir = filepath.Join(append([]string{s.Dir}, segments...)...)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	now := s.Now()
	path := filepath.Join(dir, taskfile.FileName(now, slug))
	if !exists(path) {
		return path, nil
	}
	path = filepath.Join(dir, taskfile.PreciseFileName(now, slug))
	for i := 2; exists(path); i++ {
		base := strings.TrimSuffix(taskfile.PreciseFileName(now, slug), taskfile.Ext)
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, taskfile.Ext))
	}
	return path, nil
}

// Create stamps Date Added on t and writes it to a new file. It returns the
// written task with its derived fields filled in.
func (s *Store) Create(t model.Task, folders ...string) (model.Task, error) {
	path, err := s.NewTaskPath(t.Name, folders...)
	if err != nil {
		return model.Task{}, err
	}
	return s.create(path, t)
}

// CreateAt is Create with a caller-chosen path from NewTaskPath or NewListTaskPath.
func (s *Store) CreateAt(path string, t model.Task) (model.Task, error) {
	return s.create(path, t)
}

func (s *Store) create(path string, t model.Task) (model.Task, error) {
	t.DateAdded = s.Now().Format("2006-01-02T15:04:05.000000")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task file: %w", err)
	}
	if _, err := f.Write(taskfile.Encode(t)); err != nil {
		f.Close()
		return model.Task{}, fmt.Errorf("failed to write task file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return model.Task{}, err
	}
	return withDerived(t, path), nil
}

// Rewrite replaces the contents of the task file at t.Path with t.
func (s *Store) Rewrite(t model.Task) error {
	if t.Path == "" {
		return fmt.Errorf("task %q has no file", t.Name)
	}
	tmp := t.Path + ".tmp"
	if err := os.WriteFile(tmp, taskfile.Encode(t), 0644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}
	if err := os.Rename(tmp, t.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace task file %s: %w", t.Path, err)
	}
	return nil
}

// SetStatus changes only the status of t, keeping every other field,
// Date Added included.
func (s *Store) SetStatus(t model.Task, status string) (model.Task, error) {
	t.Status = status
	if err := s.Rewrite(t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Replace rewrites t with new details and a fresh Date Added. The file
// and the list origin stay the same.
func (s *Store) Replace(t model.Task) (model.Task, error) {
	t.DateAdded = s.Now().Format("2006-01-02T15:04:05.000000")
	if err := s.Rewrite(t); err != nil {
		return model.Task{}, err
	}
	return withDerived(t, t.Path), nil
}

// Select returns the task at the 1-based position selector.
func Select(tasks []model.Task, selector int) (model.Task, error) {
	if selector < 1 || selector > len(tasks) {
		return model.Task{}, fmt.Errorf("%w: selection %d out of range 1-%d", ErrNotFound, selector, len(tasks))
	}
	return tasks[selector-1], nil
}

// Archive moves the selected task file, unmodified, into the archive
// directory and returns its file name.
func (s *Store) Archive(tasks []model.Task, selector int) (string, error) {
	task, err := Select(tasks, selector)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := filepath.Base(task.Path)
	dest := filepath.Join(s.ArchiveDir, name)
	if exists(dest) {
		return "", fmt.Errorf("archive already contains %s", name)
	}
	if err := moveFile(task.Path, dest); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return name, nil
}

// SortByPriority orders tasks by descending priority score. Tasks without
// a score sort last; ties keep file name order.
func SortByPriority(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.HasPriority() != b.HasPriority() {
			return a.HasPriority()
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		return a.FileName < b.FileName
	})
}

func withDerived(t model.Task, path string) model.Task {
	t.Path = path
	t.FileName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t.StartDate = taskfile.StartDate(t.FileName, t.DateAdded)
	return t
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// moveFile renames src to dest, falling back to copy and remove across
// file systems.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
