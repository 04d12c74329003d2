package media

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// audioExtensions is the set of file extensions probed for metadata.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".mp4":  true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".flac": true,
	".dsf":  true,
}

// IsAudioFile reports whether the path has a recognized audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Probe inspects a single file and classifies it:
//   - (nil, nil) when the path does not name a regular file (vanished,
//     directory, device) -- nothing to report;
//   - (nil, ErrNotAudioFile) when the file is not audio;
//   - (nil, *DiscoveryError) when the file looks like audio but its tags
//     could not be parsed;
//   - (record, nil) on success.
func Probe(path string) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil
	}

	if !IsAudioFile(path) {
		return nil, ErrNotAudioFile
	}

	f, err := os.Open(path) //nolint:gosec // G304: path was discovered under a configured library root
	if err != nil {
		return nil, &DiscoveryError{Path: DecodePath(path), Err: err}
	}
	defer f.Close() //nolint:errcheck

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil, &DiscoveryError{Path: DecodePath(path), Err: err}
	}

	rec := &Record{
		Path:      path,
		Title:     meta.Title(),
		Author:    meta.Artist(),
		Book:      meta.Album(),
		SizeBytes: info.Size(),
		Modified:  info.ModTime().Unix(),
	}
	rec.Disk, _ = meta.Disc()
	rec.Position, _ = meta.Track()

	// Filename fallbacks for sparse tags.
	if rec.Title == "" {
		base := filepath.Base(path)
		rec.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if rec.Book == "" {
		rec.Book = filepath.Base(filepath.Dir(path))
	}
	if rec.Disk < 1 {
		rec.Disk = 1
	}

	return rec, nil
}

// DecodePath converts a file:// URL into its plain filesystem path. Anything
// that is not a file URL is returned verbatim: a real filename may contain
// percent signs, and unescaping one would report a path that does not exist.
func DecodePath(s string) string {
	if u, err := url.Parse(s); err == nil && u.Scheme == "file" {
		// url.Parse already unescapes the path component.
		return u.Path
	}
	return s
}
