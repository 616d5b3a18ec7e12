package bridge

import (
	"net/http"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	got := sanitizeFilename(`a/b\c:d*e?f"g<h>i|j`)
	want := "a_b_c_d_e_f_g_h_i_j"
	if got != want {
		t.Fatalf("sanitizeFilename: got %q want %q", got, want)
	}
}

func TestFixFilename(t *testing.T) {
	cases := []struct {
		name, ext, want string
		changed         bool
	}{
		{"photo", "jpg", "photo.jpg", true},
		{"photo.jpg", "jpg", "photo.jpg", true},
		{"photo.png", "jpg", "photo.png", false},
		{"photo", "", "photo", false},
	}
	for _, c := range cases {
		got, changed := fixFilename(c.name, c.ext)
		if got != c.want || changed != c.changed {
			t.Errorf("fixFilename(%q, %q) = %q, %v; want %q, %v", c.name, c.ext, got, changed, c.want, c.changed)
		}
	}
}

func TestExtractFilenameFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="report.pdf"`)
	if got := extractFilenameFromHeaders(h); got != "report.pdf" {
		t.Fatalf("got %q", got)
	}

	empty := http.Header{}
	if got := extractFilenameFromHeaders(empty); got != "" {
		t.Fatalf("expected empty for missing header, got %q", got)
	}
}

func TestExtractFilenameFromURL(t *testing.T) {
	if got := extractFilenameFromURL("https://example.com/files/photo.jpg?x=1"); got != "photo.jpg" {
		t.Fatalf("got %q", got)
	}
	if got := extractFilenameFromURL("https://example.com/"); got != "" {
		t.Fatalf("expected empty for root path, got %q", got)
	}
}

func TestGuessExts(t *testing.T) {
	exts := guessExts("image/jpeg; charset=binary")
	if len(exts) == 0 {
		t.Fatal("expected at least one extension for image/jpeg")
	}
	found := false
	for _, e := range exts {
		if e == "jpg" || e == "jpeg" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected jpg/jpeg among %v", exts)
	}
}

func TestGetFinalFilenamePrefersContentDisposition(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="doc.pdf"`)
	if got := getFinalFilename(h, "https://example.com/other.txt"); got != "doc.pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestGetFinalFilenameFallsBackToURL(t *testing.T) {
	h := http.Header{}
	if got := getFinalFilename(h, "https://example.com/path/image.png"); got != "image.png" {
		t.Fatalf("got %q", got)
	}
}

func TestGetTgDocFileName(t *testing.T) {
	if got := getTgDocFileName("notes.txt", "abc123", ""); got != "notes.txt" {
		t.Fatalf("got %q", got)
	}
	if got := getTgDocFileName("", "abc123", "image/png"); got != "abc123.png" {
		t.Fatalf("got %q", got)
	}
}
