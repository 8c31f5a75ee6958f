// Package colors remembers which terminal color each remote list is shown
// with, so a list keeps its color across runs.
package colors

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// NoListColor is used for tasks that did not come from a remote list.
	NoListColor = "8"

	paletteSize = 11
)

type ListState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// Cache maps list names to ANSI color ids 1 to 11. When every slot is
// taken the least recently used list gives up its color.
type Cache struct {
	Path  string
	Lists map[string]*ListState
	Now   func() time.Time

	dirty bool
}

// Open loads the cache at path. A missing file yields an empty cache.
func Open(path string) (*Cache, error) {
	c := &Cache{
		Path:  path,
		Lists: make(map[string]*ListState),
		Now:   time.Now,
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&c.Lists); err != nil {
		return nil, err
	}
	if c.Lists == nil {
		c.Lists = make(map[string]*ListState)
	}
	for name, state := range c.Lists {
		if state == nil {
			delete(c.Lists, name)
		}
	}
	return c, nil
}

// Save writes the cache if it changed.
func (c *Cache) Save() error {
	if c == nil || !c.dirty || c.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		log.Printf("Error creating color cache directory: %v", err)
		return err
	}
	data, err := json.MarshalIndent(c.Lists, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Path, data, 0600); err != nil {
		log.Printf("Error writing color cache file: %v", err)
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the color of list, assigning one if needed.
func (c *Cache) ColorID(list string) string {
	if list == "" || c == nil {
		return NoListColor
	}
	if state, ok := c.Lists[list]; ok {
		state.LastUsed = c.Now()
		c.dirty = true
		return state.ColorID
	}
	return c.assign(list)
}

func (c *Cache) assign(list string) string {
	used := make(map[string]bool, len(c.Lists))
	for _, s := range c.Lists {
		used[s.ColorID] = true
	}

	id := ""
	for i := 1; i <= paletteSize; i++ {
		if candidate := strconv.Itoa(i); !used[candidate] {
			id = candidate
			break
		}
	}

	if id == "" {
		var oldest string
		for name, s := range c.Lists {
			if oldest == "" || s.LastUsed.Before(c.Lists[oldest].LastUsed) {
				oldest = name
			}
		}
		id = c.Lists[oldest].ColorID
		delete(c.Lists, oldest)
	}

	c.Lists[list] = &ListState{ColorID: id, LastUsed: c.Now()}
	c.dirty = true
	return id
}
