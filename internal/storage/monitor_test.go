package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pellworth/audiocove/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSettings_Partition(t *testing.T) {
	s := NewSettings([]Location{
		{Path: "/books"},
		{Path: "/mnt/usb", External: true},
		{Path: "/more-books"},
	})

	internal := s.Locations()
	if len(internal) != 2 {
		t.Errorf("Locations = %d, want 2", len(internal))
	}
	external := s.ExternalLocations()
	if len(external) != 1 || external[0].Path != "/mnt/usb" {
		t.Errorf("ExternalLocations = %+v", external)
	}
	if len(s.All()) != 3 {
		t.Errorf("All = %d, want 3", len(s.All()))
	}
}

func TestIsOnline_Untracked(t *testing.T) {
	m := NewMonitor(testLogger(), nil)
	_, err := m.IsOnline(Location{Path: "/mnt/unknown", External: true})
	if !errors.Is(err, ErrStorageNotFound) {
		t.Errorf("err = %v, want ErrStorageNotFound", err)
	}
}

func TestTrackRecordsInitialState(t *testing.T) {
	m := NewMonitor(testLogger(), nil)

	mounted := t.TempDir()
	m.Track(Location{Path: mounted, External: true})
	online, err := m.IsOnline(Location{Path: mounted, External: true})
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if !online {
		t.Error("existing directory should be online")
	}

	missing := filepath.Join(t.TempDir(), "not-mounted")
	m.Track(Location{Path: missing, External: true})
	online, err = m.IsOnline(Location{Path: missing, External: true})
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if online {
		t.Error("missing directory should be offline")
	}
}

func TestMonitorDetectsMountAndUnmount(t *testing.T) {
	parent := t.TempDir()
	mount := filepath.Join(parent, "usb")
	loc := Location{Path: mount, External: true}

	bus := event.NewBus(testLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var seen []event.Type
	for _, et := range []event.Type{event.StorageOnline, event.StorageOffline} {
		bus.Subscribe(et, func(e event.Event) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, e.Type)
		})
	}

	m := NewMonitor(testLogger(), bus)
	m.SetRefreshPeriod(20 * time.Millisecond)
	m.Track(loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	// Mount: create the directory and wait for the monitor to notice.
	if err := os.Mkdir(mount, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	waitForOnline(t, m, loc, true)

	// Unmount: remove it again.
	if err := os.Remove(mount); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitForOnline(t, m, loc, false)

	// Both transitions must have been published.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 || seen[0] != event.StorageOnline || seen[1] != event.StorageOffline {
		t.Errorf("events = %v, want [storage.online storage.offline]", seen)
	}
}

func waitForOnline(t *testing.T, m *Monitor, loc Location, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		online, err := m.IsOnline(loc)
		if err != nil {
			t.Fatalf("IsOnline: %v", err)
		}
		if online == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("monitor did not report online=%v within timeout", want)
}
