package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pellworth/audiocove/internal/event"
	"github.com/pellworth/audiocove/internal/library"
	"github.com/pellworth/audiocove/internal/media"
	"github.com/pellworth/audiocove/internal/storage"
)

// Library is the persistence boundary the importer depends on.
type Library interface {
	Files(ctx context.Context) (map[string]struct{}, error)
	Chapters(ctx context.Context) ([]library.Chapter, error)
	InsertMany(ctx context.Context, records []*media.Record) error
}

// StorageStatus answers whether an external storage location is online.
type StorageStatus interface {
	IsOnline(loc storage.Location) (bool, error)
}

// ProbeFunc inspects one file, following the media.Probe contract.
type ProbeFunc func(path string) (*media.Record, error)

// Options tunes a scan run.
type Options struct {
	BatchSize int     // candidates per batch, default 100
	Workers   int     // concurrent probes, default number of CPUs
	ProbeRate float64 // probes per second, 0 = unlimited
	// IncludeUnknownStorage scans external locations the monitor does not
	// recognize as if they were online.
	IncludeUnknownStorage bool
}

// Importer runs import scans over the configured storage locations.
// Discovery, filtering, and batching happen on the calling goroutine; only
// probing is parallel.
type Importer struct {
	settings  *storage.Settings
	monitor   StorageStatus
	library   Library
	probe     ProbeFunc
	eventBus  *event.Bus
	logger    *slog.Logger
	batchSize int
	workers   int
	limiter   *rate.Limiter

	includeUnknown bool

	mu      sync.Mutex
	current *Result
}

// New creates an importer.
func New(settings *storage.Settings, monitor StorageStatus, lib Library, probe ProbeFunc, eventBus *event.Bus, logger *slog.Logger, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	var limiter *rate.Limiter
	if opts.ProbeRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ProbeRate), opts.Workers)
	}
	return &Importer{
		settings:       settings,
		monitor:        monitor,
		library:        lib,
		probe:          probe,
		eventBus:       eventBus,
		logger:         logger.With("component", "importer"),
		batchSize:      opts.BatchSize,
		workers:        opts.Workers,
		limiter:        limiter,
		includeUnknown: opts.IncludeUnknownStorage,
	}
}

// Scan runs one import end to end and returns its result. Only one scan
// runs at a time. Per-file faults never surface as errors: they end up in
// the result's Undetected set or are silently skipped. The returned error
// is reserved for collaborator failures (the library store) and
// cancellation.
func (imp *Importer) Scan(ctx context.Context) (*Result, error) {
	imp.mu.Lock()
	if imp.current != nil && imp.current.Status == StateRunning {
		imp.mu.Unlock()
		return nil, fmt.Errorf("scan already in progress")
	}
	result := &Result{
		ID:        uuid.New().String(),
		Status:    StateRunning,
		StartedAt: time.Now().UTC(),
	}
	imp.current = result
	imp.mu.Unlock()

	imp.logger.Info("starting import", "scan_id", result.ID)
	imp.emitStatus(result.ID, ScanStarted)

	err := imp.run(ctx, result)

	imp.mu.Lock()
	now := time.Now().UTC()
	result.CompletedAt = &now
	switch {
	case err != nil:
		result.Status = StateFailed
		result.Error = err.Error()
	case len(result.Undetected) > 0:
		result.Status = StateCompletedWithFailures
	default:
		result.Status = StateCompleted
	}
	snapshot := result.snapshot()
	imp.mu.Unlock()

	if err != nil {
		imp.logger.Error("import failed", "scan_id", result.ID, "error", err)
		return snapshot, err
	}

	imp.logger.Info("import finished",
		"scan_id", result.ID,
		"roots", snapshot.Roots,
		"candidates", snapshot.Candidates,
		"imported", snapshot.Imported,
		"undetected", len(snapshot.Undetected),
	)

	imp.emitStatus(result.ID, ScanSuccess)
	if len(snapshot.Undetected) > 0 {
		imp.logger.Info("some files could not be imported", "files", snapshot.Undetected)
		if imp.eventBus != nil {
			imp.eventBus.Publish(event.Event{
				Type: event.ImportFailed,
				Data: map[string]any{
					"scan_id": result.ID,
					"files":   snapshot.Undetected,
				},
			})
		}
	}

	return snapshot, nil
}

// Status returns a snapshot of the current or most recent scan result.
// The returned value is a copy and safe to read without synchronization.
func (imp *Importer) Status() *Result {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.current == nil {
		return nil
	}
	return imp.current.snapshot()
}

func (imp *Importer) run(ctx context.Context, result *Result) error {
	roots := imp.resolveRoots()
	imp.mu.Lock()
	result.Roots = len(roots)
	imp.mu.Unlock()

	idx, err := imp.snapshotIndex(ctx)
	if err != nil {
		return err
	}

	candidates := filterChanged(walk(roots, imp.logger), idx, imp.logger)
	return imp.runBatches(ctx, candidates, result)
}

// resolveRoots computes the storage roots eligible for this run: every
// non-external location, plus each external location the monitor reports
// online. A location the monitor does not track is treated per the
// IncludeUnknownStorage option. Only paths that exist on disk survive;
// a vanished or offline location is excluded without error.
func (imp *Importer) resolveRoots() []string {
	var candidates []string
	for _, loc := range imp.settings.Locations() {
		candidates = append(candidates, loc.Path)
	}

	for _, loc := range imp.settings.ExternalLocations() {
		online, err := imp.monitor.IsOnline(loc)
		switch {
		case errors.Is(err, storage.ErrStorageNotFound):
			if imp.includeUnknown {
				imp.logger.Debug("external storage unknown to monitor, scanning anyway", "path", loc.Path)
				candidates = append(candidates, loc.Path)
			} else {
				imp.logger.Debug("external storage unknown to monitor, skipping", "path", loc.Path)
			}
		case err != nil:
			imp.logger.Warn("storage status query failed, skipping", "path", loc.Path, "error", err)
		case online:
			candidates = append(candidates, loc.Path)
		default:
			imp.logger.Debug("external storage offline, skipping", "path", loc.Path)
		}
	}

	var roots []string
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			roots = append(roots, p)
		}
	}
	return roots
}

// snapshotIndex reads the imported-file index once. The snapshot stays
// stable for the whole scan; inserts made by this scan's batches are not
// reflected back into it.
func (imp *Importer) snapshotIndex(ctx context.Context) (*fileIndex, error) {
	files, err := imp.library.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting imported files: %w", err)
	}
	chapters, err := imp.library.Chapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting chapters: %w", err)
	}

	modified := make(map[string]int64, len(chapters))
	for _, c := range chapters {
		modified[c.File] = c.Modified
	}
	return &fileIndex{files: files, modified: modified}, nil
}

func (imp *Importer) emitStatus(scanID string, status ScanStatus) {
	if imp.eventBus == nil {
		return
	}
	imp.eventBus.Publish(event.Event{
		Type: event.ScanStatus,
		Data: map[string]any{
			"scan_id": scanID,
			"status":  status,
		},
	})
}
