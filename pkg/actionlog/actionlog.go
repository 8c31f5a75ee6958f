// Package actionlog appends a line per user-visible mutation to the log
// file in the application home.
package actionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes "<timestamp> - <action>" lines. The zero value and a nil
// *Logger discard everything.
type Logger struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

// New returns a logger appending to path.
func New(path string) *Logger {
	return &Logger{Path: path, Now: time.Now}
}

// Log records one action.
func (l *Logger) Log(format string, args ...any) error {
	if l == nil || l.Path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	_, err = fmt.Fprintf(f, "%s - %s\n", now().Format("2006-01-02T15:04:05.000000"), fmt.Sprintf(format, args...))
	return err
}
