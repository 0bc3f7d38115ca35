package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/sitefocus/internal/stream"
)

// Settings is the small mutable state the daemon persists between runs.
// Today that is only the stream endpoint.
type Settings struct {
	path string
}

type settingsFile struct {
	StreamURL string `json:"stream_url"`
}

// NewSettings returns Settings backed by path.
func NewSettings(path string) *Settings {
	return &Settings{path: path}
}

// DefaultSettings returns Settings backed by ~/.config/sitefocus/settings.json.
func DefaultSettings() (*Settings, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewSettings(filepath.Join(dir, "settings.json")), nil
}

// Path returns the settings file location.
func (s *Settings) Path() string { return s.path }

// LoadStreamURL returns the stored endpoint, or stream.DefaultURL when none
// has been saved.
func (s *Settings) LoadStreamURL() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return stream.DefaultURL, nil
	}
	if err != nil {
		return "", err
	}
	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", &ParseError{Path: s.path, Err: err}
	}
	if f.StreamURL == "" {
		return stream.DefaultURL, nil
	}
	return f.StreamURL, nil
}

// SaveStreamURL persists url. It does not validate; callers do.
func (s *Settings) SaveStreamURL(url string) error {
	data, err := json.MarshalIndent(settingsFile{StreamURL: url}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, append(data, '\n'))
}

// WatchStreamURL calls fn with the stored endpoint whenever the settings
// file changes, until ctx is cancelled. Unreadable intermediate states are
// skipped. The parent directory is watched so atomic renames are seen.
func (s *Settings) WatchStreamURL(ctx context.Context, fn func(url string)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	last, _ := s.LoadStreamURL()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			url, err := s.LoadStreamURL()
			if err != nil || url == last {
				continue
			}
			last = url
			fn(url)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
