package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

// tokenCache stores one oauth2.Token as JSON. Reads and writes hold a
// lock file next to the cache.
type tokenCache struct {
	path string
}

func (c tokenCache) lock() *flock.Flock {
	return flock.New(c.path + ".lock")
}

func (c tokenCache) load() (*oauth2.Token, error) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return nil, err
	}
	fl := c.lock()
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock token cache: %w", err)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", c.path, err)
	}
	return tok, nil
}

func (c tokenCache) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	fl := c.lock()
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("failed to lock token cache: %w", err)
	}
	defer fl.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", c.path, err)
	}
	return os.Rename(tmp, c.path)
}

// remove deletes the cache and reports whether it existed.
func (c tokenCache) remove() (bool, error) {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = os.Remove(c.path + ".lock")
	return true, nil
}

// savingTokenSource re-saves the token whenever the underlying source
// hands out a refreshed one.
type savingTokenSource struct {
	base  oauth2.TokenSource
	cache tokenCache
	last  *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := s.cache.save(tok); err != nil {
			return nil, err
		}
		s.last = tok
	}
	return tok, nil
}
