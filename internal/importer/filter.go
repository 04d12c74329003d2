package importer

import (
	"iter"
	"log/slog"
	"os"
)

// fileIndex is the read-only snapshot of already imported files, taken once
// at the start of a scan. Batch inserts during the same scan do not feed
// back into it.
type fileIndex struct {
	files    map[string]struct{}
	modified map[string]int64 // path -> modification time at import, unix seconds
}

// filterChanged yields the paths that still need probing: files not yet
// imported, and imported files whose on-disk modification time (whole
// seconds) is strictly newer than the recorded one.
func filterChanged(files iter.Seq[string], idx *fileIndex, logger *slog.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		for path := range files {
			if _, imported := idx.files[path]; !imported {
				if !yield(path) {
					return
				}
				continue
			}

			stored, ok := idx.modified[path]
			if !ok {
				// The path is indexed but has no chapter entry. That only
				// happens when the library is inconsistent; skip the file
				// rather than failing the scan.
				logger.Warn("imported file has no chapter record, skipping", "path", path)
				continue
			}

			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().Unix() > stored {
				if !yield(path) {
					return
				}
			}
		}
	}
}
