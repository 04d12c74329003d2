package media

import (
	"errors"
	"fmt"
)

// Record is the structured metadata extracted from one probed audio file.
// One record corresponds to one chapter of an audiobook (single-file books
// produce a single chapter).
type Record struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Book      string `json:"book"`
	Disk      int    `json:"disk"`
	Position  int    `json:"position"`
	SizeBytes int64  `json:"size_bytes"`
	Modified  int64  `json:"modified"` // unix seconds
}

// ErrNotAudioFile reports that a probed file is not an audio file at all.
// Callers treat this as benign: the file is simply not part of the library.
var ErrNotAudioFile = errors.New("not an audio file")

// DiscoveryError reports a file that looks like audio but whose container
// or tags could not be parsed. Path is the decoded filesystem path.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("audio file could not be discovered: %s", e.Path)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
