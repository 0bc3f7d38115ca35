package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrUnknownBackend is returned by Open for an unrecognised store name.
var ErrUnknownBackend = errors.New("unknown session store backend")

// Store is the append-only, bounded log of finalized sessions.
type Store interface {
	Append(ctx context.Context, s FinalizedSession) error
	List(ctx context.Context) ([]FinalizedSession, error) // oldest first
	Clear(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the Store for backend rooted at dir. An empty dir means
// DataDir().
func Open(backend, dir string) (Store, error) {
	if dir == "" && backend == BackendSQLite {
		d, err := DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		dir = d
	}
	switch backend {
	case "", BackendJSON:
		return NewDiskStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "sessions.db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Close releases any resources held by s.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DataDir returns the sitefocus XDG data directory.
// Path: $XDG_DATA_HOME/sitefocus or ~/.local/share/sitefocus
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "sitefocus"), nil
}

// diskStore keeps the whole log in one JSON file.
type diskStore struct {
	mu   sync.Mutex
	path string // full path to sessions.json
}

// NewDiskStore returns a Store backed by dir/sessions.json. An empty dir
// means DataDir().
func NewDiskStore(dir string) (Store, error) {
	if dir == "" {
		d, err := DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: filepath.Join(dir, "sessions.json")}, nil
}

func (d *diskStore) Append(_ context.Context, s FinalizedSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sessions, err := d.load()
	if err != nil {
		return err
	}
	sessions = append(sessions, s)
	if len(sessions) > MaxStoredSessions {
		sessions = sessions[len(sessions)-MaxStoredSessions:]
	}
	return d.save(sessions)
}

func (d *diskStore) List(_ context.Context) ([]FinalizedSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

func (d *diskStore) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save([]FinalizedSession{})
}

// load reads the log. A missing file is an empty log.
func (d *diskStore) load() ([]FinalizedSession, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []FinalizedSession{}, nil
		}
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	var sessions []FinalizedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse session log: %w", err)
	}
	if sessions == nil {
		sessions = []FinalizedSession{}
	}
	return sessions, nil
}

// save marshals sessions to JSON and writes it atomically via a temp file + os.Rename.
func (d *diskStore) save(sessions []FinalizedSession) (err error) {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to persist session log: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session log: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session log: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session log: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist session log: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	sessions []FinalizedSession
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, s FinalizedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	if len(m.sessions) > MaxStoredSessions {
		m.sessions = append([]FinalizedSession(nil), m.sessions[len(m.sessions)-MaxStoredSessions:]...)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]FinalizedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FinalizedSession, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}
