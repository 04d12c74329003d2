package importer

import (
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
)

// walk lazily yields every file under the given roots. An unreadable
// directory skips only its own subtree; a single bad directory must never
// take down a whole scan.
func walk(roots []string, logger *slog.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		stopped := false
		for _, root := range roots {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					logger.Warn("skipping unreadable path", "path", path, "error", err)
					if d != nil && d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}
				if d.IsDir() {
					return nil
				}
				if !yield(path) {
					stopped = true
					return fs.SkipAll
				}
				return nil
			})
			if err != nil {
				logger.Warn("walking storage root", "root", root, "error", err)
			}
			if stopped {
				return
			}
		}
	}
}
