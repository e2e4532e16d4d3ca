package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrAreaDestroyed is returned when writing to the area of a session that has ended.
var ErrAreaDestroyed = errors.New("session storage area was destroyed")

// Workspace owns the root directory under which every session gets its own area.
type Workspace struct {
	root   string
	remove func(path string) error
}

// Option customizes a Workspace.
type Option func(*Workspace)

// WithRemover replaces the function used to delete old entries. Defaults to os.RemoveAll.
func WithRemover(fn func(path string) error) Option {
	return func(w *Workspace) { w.remove = fn }
}

// New creates the root directory if it does not exist yet.
func New(root string, opts ...Option) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	w := &Workspace{root: root, remove: os.RemoveAll}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Reset removes everything left under the root by a previous process.
// Failures are logged and returned joined, the caller decides whether they matter.
func (w *Workspace) Reset() error {
	return clearDir(w.root, w.remove)
}

// Area returns the storage area of one session, creating it when needed.
func (w *Workspace) Area(sessionID string) (*Area, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || sessionID == "." || sessionID == ".." {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	dir := filepath.Join(w.root, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Area{dir: dir, remove: w.remove}, nil
}

// Area is the directory holding the single document of one session.
// Once destroyed it accepts no more writes.
type Area struct {
	dir    string
	remove func(path string) error

	mu        sync.Mutex
	destroyed bool
}

// Dir returns the area directory.
func (a *Area) Dir() string {
	return a.dir
}

// Store replaces whatever the area holds with data written to fileName.
// Cleanup problems are returned as a warning next to a valid path; a write
// failure returns an empty path.
func (a *Area) Store(data []byte, fileName string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return "", ErrAreaDestroyed
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	warn := clearDir(a.dir, a.remove)

	name := filepath.Base(filepath.Clean("/" + fileName))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	path := filepath.Join(a.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	slog.Info("File saved", "path", path, "size", len(data))
	return path, warn
}

// Destroy removes the area and everything in it. A Store in progress finishes first.
func (a *Area) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyed = true
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

// clearDir deletes every entry of dir with remove. Symlinks are removed, not followed.
// It keeps going after a failure so one stuck entry does not block the rest.
func clearDir(dir string, remove func(string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		slog.Warn("Error while removing existing files", "dir", dir, "err", err)
		return fmt.Errorf("error while removing existing files: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := remove(path); err != nil {
			slog.Warn("Error while removing existing files", "path", path, "err", err)
			errs = append(errs, fmt.Errorf("error while removing existing files: %w", err))
		}
	}

	return errors.Join(errs...)
}
