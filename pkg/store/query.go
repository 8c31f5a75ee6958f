package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

// Search returns the tasks whose file contents contain keyword,
// case-insensitively. With tagOnly set only the tags are searched.
func Search(tasks []model.Task, keyword string, tagOnly bool) ([]model.Task, error) {
	needle := strings.ToLower(keyword)
	var found []model.Task
	for _, task := range tasks {
		if tagOnly {
			for _, tag := range task.TagList() {
				if strings.Contains(strings.ToLower(tag), needle) {
					found = append(found, task)
					break
				}
			}
			continue
		}

		content, err := os.ReadFile(task.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", task.Path, err)
		}
		if strings.Contains(strings.ToLower(string(content)), needle) {
			found = append(found, task)
		}
	}
	return found, nil
}

// Filter selects tasks by priority range and tag.
type Filter struct {
	MinPriority int
	MaxPriority int
	// Tag, when set, must equal one of the task's tags case-insensitively.
	Tag string
}

// DefaultFilter matches every task with a parsed priority score.
func DefaultFilter() Filter {
	return Filter{MinPriority: model.SentinelPriority, MaxPriority: -model.SentinelPriority}
}

// Apply returns the matching tasks. Tasks without a priority score never
// match.
func (f Filter) Apply(tasks []model.Task) []model.Task {
	var matched []model.Task
	for _, task := range tasks {
		if !task.HasPriority() || task.PriorityScore < f.MinPriority || task.PriorityScore > f.MaxPriority {
			continue
		}
		if f.Tag != "" && !hasTag(task, f.Tag) {
			continue
		}
		matched = append(matched, task)
	}
	return matched
}

func hasTag(task model.Task, tag string) bool {
	for _, t := range task.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
