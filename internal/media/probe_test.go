package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// id3v1Tag builds a minimal ID3v1.1 tag block (the 128-byte trailer).
func id3v1Tag(title, artist, album string, track byte) []byte {
	buf := make([]byte, 128)
	copy(buf[0:3], "TAG")
	copy(buf[3:33], title)
	copy(buf[33:63], artist)
	copy(buf[63:93], album)
	copy(buf[93:97], "2021")
	// ID3v1.1: comment[28] == 0 marks byte 29 as the track number.
	buf[125] = 0
	buf[126] = track
	buf[127] = 255 // genre: none
	return buf
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestProbe_MissingFile(t *testing.T) {
	rec, err := Probe(filepath.Join(t.TempDir(), "gone.mp3"))
	if rec != nil || err != nil {
		t.Errorf("Probe(missing) = (%v, %v), want (nil, nil)", rec, err)
	}
}

func TestProbe_Directory(t *testing.T) {
	rec, err := Probe(t.TempDir())
	if rec != nil || err != nil {
		t.Errorf("Probe(dir) = (%v, %v), want (nil, nil)", rec, err)
	}
}

func TestProbe_NotAudio(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", []byte("hello"))
	rec, err := Probe(path)
	if rec != nil {
		t.Errorf("rec = %v, want nil", rec)
	}
	if !errors.Is(err, ErrNotAudioFile) {
		t.Errorf("err = %v, want ErrNotAudioFile", err)
	}
}

func TestProbe_UnparsableAudio(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.mp3", []byte("this is not an mp3 at all"))
	rec, err := Probe(path)
	if rec != nil {
		t.Errorf("rec = %v, want nil", rec)
	}
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if de.Path != path {
		t.Errorf("DiscoveryError.Path = %q, want %q", de.Path, path)
	}
}

func TestProbe_TaggedMP3(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "My Book")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := writeFile(t, dir, "03.mp3", id3v1Tag("Chapter Three", "Jane Doe", "My Book", 3))

	rec, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rec.Title != "Chapter Three" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Author != "Jane Doe" {
		t.Errorf("Author = %q", rec.Author)
	}
	if rec.Book != "My Book" {
		t.Errorf("Book = %q", rec.Book)
	}
	if rec.Position != 3 {
		t.Errorf("Position = %d, want 3", rec.Position)
	}
	if rec.Disk != 1 {
		t.Errorf("Disk = %d, want 1", rec.Disk)
	}
	if rec.SizeBytes != 128 {
		t.Errorf("SizeBytes = %d, want 128", rec.SizeBytes)
	}
	if rec.Modified == 0 {
		t.Error("Modified should be set")
	}
}

func TestProbe_FallbackTitleAndBook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Sparse Book")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := writeFile(t, dir, "intro.mp3", id3v1Tag("", "", "", 0))

	rec, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rec.Title != "intro" {
		t.Errorf("Title = %q, want filename fallback", rec.Title)
	}
	if rec.Book != "Sparse Book" {
		t.Errorf("Book = %q, want directory fallback", rec.Book)
	}
}

func TestIsAudioFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/a/b.mp3", true},
		{"/a/b.M4B", true},
		{"/a/b.flac", true},
		{"/a/b.opus", true},
		{"/a/b.txt", false},
		{"/a/b.jpg", false},
		{"/a/noext", false},
	}
	for _, c := range cases {
		if got := IsAudioFile(c.path); got != c.want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestDecodePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/plain/path.mp3", "/plain/path.mp3"},
		{"file:///books/with%20space.mp3", "/books/with space.mp3"},
		// Not a URL: percent sequences in a real filename stay untouched.
		{"/books/track%41one.mp3", "/books/track%41one.mp3"},
		{"/books/100%20done.mp3", "/books/100%20done.mp3"},
	}
	for _, c := range cases {
		if got := DecodePath(c.in); got != c.want {
			t.Errorf("DecodePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestProbe_PercentInFilename(t *testing.T) {
	// The reported path must name the file as it exists on disk, even when
	// the name happens to look percent-encoded.
	path := writeFile(t, t.TempDir(), "track%41one.mp3", []byte("not a valid mp3"))

	rec, err := Probe(path)
	if rec != nil {
		t.Errorf("rec = %v, want nil", rec)
	}
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if de.Path != path {
		t.Errorf("DiscoveryError.Path = %q, want the on-disk path %q", de.Path, path)
	}
}
