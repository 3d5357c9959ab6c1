package s3

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// setupCaptureDir creates a temporary directory shaped like a typical
// acquisition output tree and returns the path.
func setupCaptureDir(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	dirs := []string{
		"memory",
		"disk",
		"scratch",
	}

	files := []string{
		"notes.txt",
		"manifest.json",
		"memory/webserver.lime",
		"memory/webserver.lime.sha256",
		"disk/webserver-root.dd",
		"disk/webserver-root.dd.sha256",
		"scratch/partial.tmp",
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	for _, file := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, file), []byte("capture data"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	return tmpDir
}

func TestExpandGlob_SingleFile(t *testing.T) {
	tmpDir := setupCaptureDir(t)

	files, err := expandGlob([]string{filepath.Join(tmpDir, "notes.txt")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0] != filepath.Join(tmpDir, "notes.txt") {
		t.Errorf("expected %s, got %s", filepath.Join(tmpDir, "notes.txt"), files[0])
	}
}

func TestExpandGlob_RecursivePattern(t *testing.T) {
	tmpDir := setupCaptureDir(t)

	files, err := expandGlob([]string{filepath.Join(tmpDir, "**/*")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All 7 files, directories skipped.
	if len(files) != 7 {
		t.Fatalf("expected 7 files, got %d: %v", len(files), files)
	}
}

func TestExpandGlob_ExcludeWithBangPrefix(t *testing.T) {
	tmpDir := setupCaptureDir(t)

	files, err := expandGlob([]string{
		filepath.Join(tmpDir, "**/*"),
		"!" + filepath.Join(tmpDir, "**/*.tmp"),
		"!" + filepath.Join(tmpDir, "**/*.sha256"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		filepath.Join(tmpDir, "disk/webserver-root.dd"),
		filepath.Join(tmpDir, "manifest.json"),
		filepath.Join(tmpDir, "memory/webserver.lime"),
		filepath.Join(tmpDir, "notes.txt"),
	}
	sort.Strings(expected)

	if len(files) != len(expected) {
		t.Fatalf("expected %d files, got %d: %v", len(expected), len(files), files)
	}
	for i, f := range files {
		if f != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], f)
		}
	}
}

func TestExpandGlob_ReturnsSortedPaths(t *testing.T) {
	tmpDir := setupCaptureDir(t)

	files, err := expandGlob([]string{filepath.Join(tmpDir, "**/*")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sort.StringsAreSorted(files) {
		t.Errorf("expected sorted file list, got %v", files)
	}
}

func TestExpandGlob_NoMatches(t *testing.T) {
	tmpDir := setupCaptureDir(t)

	_, err := expandGlob([]string{filepath.Join(tmpDir, "*.raw")})
	if err == nil {
		t.Fatal("expected an error when nothing matches")
	}
}

func TestExpandGlob_InvalidPattern(t *testing.T) {
	_, err := expandGlob([]string{"[unclosed"})
	if err == nil {
		t.Fatal("expected an error for an invalid pattern")
	}
}

func TestParseBucketPath(t *testing.T) {
	tests := []struct {
		in         string
		wantBucket string
		wantPrefix string
	}{
		{"ir-4211-evidence", "ir-4211-evidence", ""},
		{"s3://ir-4211-evidence", "ir-4211-evidence", ""},
		{"s3://ir-4211-evidence/", "ir-4211-evidence", ""},
		{"s3://ir-4211-evidence/webserver", "ir-4211-evidence", "webserver"},
		{"s3://ir-4211-evidence/webserver/disk", "ir-4211-evidence", "webserver/disk"},
		{"ir-4211-evidence/webserver", "ir-4211-evidence", "webserver"},
	}

	for _, tt := range tests {
		bucket, prefix := parseBucketPath(tt.in)
		if bucket != tt.wantBucket || prefix != tt.wantPrefix {
			t.Errorf("parseBucketPath(%q) = (%q, %q), want (%q, %q)",
				tt.in, bucket, prefix, tt.wantBucket, tt.wantPrefix)
		}
	}
}
