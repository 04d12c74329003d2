package importer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pellworth/audiocove/internal/media"
)

// runBatches drains the filtered file sequence in fixed-size batches. Each
// batch is fanned out to the worker pool and fully joined before the next
// one starts, so at most one batch of probes is in flight and each batch's
// records go to the library as one bulk insert. An empty batch ends the
// scan.
func (imp *Importer) runBatches(ctx context.Context, files iter.Seq[string], result *Result) error {
	next, stop := iter.Pull(files)
	defer stop()

	undetected := make(map[string]struct{})

	for {
		// Cancellation is checked only here: a batch either completes in
		// full or the scan stops before it starts.
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := takeBatch(next, imp.batchSize)
		if len(batch) == 0 {
			break
		}

		imp.mu.Lock()
		result.Candidates += len(batch)
		imp.mu.Unlock()

		records, failed := imp.probeBatch(ctx, batch)
		for _, p := range failed {
			undetected[p] = struct{}{}
		}

		if len(records) > 0 {
			if err := imp.library.InsertMany(ctx, records); err != nil {
				return fmt.Errorf("inserting batch: %w", err)
			}
			imp.mu.Lock()
			result.Imported += len(records)
			imp.mu.Unlock()
		}
	}

	paths := make([]string, 0, len(undetected))
	for p := range undetected {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	imp.mu.Lock()
	result.Undetected = paths
	imp.mu.Unlock()
	return nil
}

// takeBatch pulls up to n paths from the cursor. The last batch of a scan
// may be shorter.
func takeBatch(next func() (string, bool), n int) []string {
	batch := make([]string, 0, n)
	for len(batch) < n {
		path, ok := next()
		if !ok {
			break
		}
		batch = append(batch, path)
	}
	return batch
}

// probeBatch probes every path in the batch on the worker pool and waits for
// all of them. Results are partitioned: valid records are returned for
// insertion, discovery failures are returned as decoded paths, everything
// else (vanished files, non-audio files) is dropped.
func (imp *Importer) probeBatch(ctx context.Context, batch []string) ([]*media.Record, []string) {
	var mu sync.Mutex
	var records []*media.Record
	var failed []string

	g := new(errgroup.Group)
	g.SetLimit(imp.workers)

	for _, path := range batch {
		g.Go(func() error {
			if imp.limiter != nil {
				if err := imp.limiter.Wait(ctx); err != nil {
					return nil //nolint:nilerr // canceled mid-batch: the file is skipped, not failed
				}
			}

			rec, err := imp.probe(path)

			var discoveryErr *media.DiscoveryError
			switch {
			case err == nil && rec != nil:
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			case errors.As(err, &discoveryErr):
				mu.Lock()
				failed = append(failed, discoveryErr.Path)
				mu.Unlock()
			case err == nil || errors.Is(err, media.ErrNotAudioFile):
				// Vanished between discovery and probing, or simply not
				// audio: nothing to report.
			default:
				imp.logger.Warn("probe failed", "path", path, "error", err)
			}
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers never return errors

	return records, failed
}
