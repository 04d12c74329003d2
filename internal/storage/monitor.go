package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pellworth/audiocove/internal/event"
)

// ErrStorageNotFound reports that the monitor does not track the queried
// location. Callers decide whether to treat an untracked location as online.
var ErrStorageNotFound = errors.New("storage location not tracked")

// Monitor tracks the online state of external storage locations. A location
// counts as online while its mount point exists and is a directory. Changes
// are picked up through fsnotify on the mount point's parent directory, with
// a periodic stat refresh as a fallback for filesystems where fsnotify does
// not deliver mount events.
type Monitor struct {
	logger        *slog.Logger
	eventBus      *event.Bus
	refreshPeriod time.Duration

	mu     sync.Mutex
	online map[string]bool // tracked mount point -> online
}

// NewMonitor creates a storage monitor. Track locations before calling Start.
func NewMonitor(logger *slog.Logger, eventBus *event.Bus) *Monitor {
	return &Monitor{
		logger:        logger.With("component", "storage-monitor"),
		eventBus:      eventBus,
		refreshPeriod: time.Minute,
		online:        make(map[string]bool),
	}
}

// SetRefreshPeriod overrides the stat refresh interval (for testing).
func (m *Monitor) SetRefreshPeriod(d time.Duration) {
	m.refreshPeriod = d
}

// Track registers a location with the monitor and records its current state.
func (m *Monitor) Track(loc Location) {
	online := statOnline(loc.Path)
	m.mu.Lock()
	m.online[loc.Path] = online
	m.mu.Unlock()
	m.logger.Info("tracking storage location", "path", loc.Path, "online", online)
}

// IsOnline reports whether a tracked location is currently online. Returns
// ErrStorageNotFound when the location was never registered with Track.
func (m *Monitor) IsOnline(loc Location) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	online, ok := m.online[loc.Path]
	if !ok {
		return false, ErrStorageNotFound
	}
	return online, nil
}

// Start blocks until ctx is canceled. It watches the parent directories of
// all tracked mount points and refreshes state periodically. If fsnotify is
// unavailable, the monitor still runs with stat polling only.
func (m *Monitor) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		for _, parent := range m.watchParents() {
			if err := w.Add(parent); err != nil {
				m.logger.Warn("failed to watch storage parent", "path", parent, "error", err)
			}
		}
	}

	m.logger.Info("storage monitor starting")

	ticker := time.NewTicker(m.refreshPeriod)
	defer ticker.Stop()

	// When fsnotify is unavailable, use nil channels (never receive).
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("storage monitor stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if m.tracks(ev.Name) {
				m.refreshOne(ev.Name)
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			m.logger.Error("fsnotify error", "error", err)

		case <-ticker.C:
			m.refreshAll()
		}
	}
}

// watchParents returns the deduplicated parent directories of all tracked
// mount points.
func (m *Monitor) watchParents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var parents []string
	for path := range m.online {
		parent := filepath.Dir(path)
		if !seen[parent] {
			seen[parent] = true
			parents = append(parents, parent)
		}
	}
	return parents
}

func (m *Monitor) tracks(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.online[path]
	return ok
}

func (m *Monitor) refreshAll() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.online))
	for p := range m.online {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	for _, p := range paths {
		m.refreshOne(p)
	}
}

// refreshOne re-stats a tracked mount point and publishes an event when its
// state flips.
func (m *Monitor) refreshOne(path string) {
	online := statOnline(path)

	m.mu.Lock()
	was, ok := m.online[path]
	if !ok || was == online {
		m.mu.Unlock()
		return
	}
	m.online[path] = online
	m.mu.Unlock()

	if online {
		m.logger.Info("storage came online", "path", path)
	} else {
		m.logger.Warn("storage went offline", "path", path)
	}

	if m.eventBus == nil {
		return
	}
	eventType := event.StorageOffline
	if online {
		eventType = event.StorageOnline
	}
	m.eventBus.Publish(event.Event{
		Type: eventType,
		Data: map[string]any{"path": path},
	})
}

func statOnline(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
