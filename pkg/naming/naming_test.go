package naming

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// crc32("123456789") is cbf43926, so a caller identity of "1234" and a
// source ID of "56789" give a known checksum.
const (
	testCaller   = "1234"
	testSourceID = "56789"
	testChecksum = "cbf43926"
)

func TestGenerateCopyName_NoPrefix(t *testing.T) {
	name, err := GenerateCopyName("vol-deadbeef", testSourceID, testCaller, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "vol-deadbeef-" + testChecksum + "-copy"
	if name != want {
		t.Fatalf("expected %s, got %s", want, name)
	}
}

func TestGenerateCopyName_WithPrefix(t *testing.T) {
	name, err := GenerateCopyName("vol-deadbeef", testSourceID, testCaller, "evidence")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "evidence-vol-deadbeef-" + testChecksum + "-copy"
	if name != want {
		t.Fatalf("expected %s, got %s", want, name)
	}
}

func TestGenerateCopyName_ChecksumVariesWithCaller(t *testing.T) {
	first, err := GenerateCopyName("vol-deadbeef", testSourceID, "AIDAEXAMPLE", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := GenerateCopyName("vol-deadbeef", testSourceID, "AIDAOTHER", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Fatalf("expected different callers to yield different names, both got %s", first)
	}
}

func TestGenerateCopyName_LongBaseTruncated(t *testing.T) {
	name, err := GenerateCopyName(strings.Repeat("a", 300), testSourceID, testCaller, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(name) != 255 {
		t.Fatalf("expected name to be capped at 255 characters, got %d", len(name))
	}
	if !strings.HasSuffix(name, "-"+testChecksum+"-copy") {
		t.Fatalf("expected checksum and suffix to survive truncation, got %s", name)
	}
	if !strings.HasPrefix(name, strings.Repeat("a", 241)) {
		t.Fatalf("expected 241 characters of the base to be kept, got %s", name)
	}
}

func TestGenerateCopyName_LongPrefixTruncated(t *testing.T) {
	name, err := GenerateCopyName("vol-deadbeef", testSourceID, testCaller, strings.Repeat("p", 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(name) != 255 {
		t.Fatalf("expected name to be capped at 255 characters, got %d", len(name))
	}
	if !strings.HasSuffix(name, "-"+testChecksum+"-copy") {
		t.Fatalf("expected checksum and suffix to survive truncation, got %s", name)
	}
}

func TestGenerateCopyName_MultibyteBase(t *testing.T) {
	name, err := GenerateCopyName(strings.Repeat("ü", 300), testSourceID, testCaller, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len([]rune(name)); got != 255 {
		t.Fatalf("expected 255 characters, got %d", got)
	}
}

func TestGenerateSnapshotName(t *testing.T) {
	when := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

	name, err := GenerateSnapshotName("vol-0123456789abcdef0", when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "vol-0123456789abcdef0-20260102150405"
	if name != want {
		t.Fatalf("expected %s, got %s", want, name)
	}
}

func TestGenerateSnapshotName_LongBaseTruncated(t *testing.T) {
	when := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

	name, err := GenerateSnapshotName(strings.Repeat("x", 300), when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(name) != 255 {
		t.Fatalf("expected name to be capped at 255 characters, got %d", len(name))
	}
	if !strings.HasSuffix(name, "-20260102150405") {
		t.Fatalf("expected timestamp to survive truncation, got %s", name)
	}
}

func TestValidate_Empty(t *testing.T) {
	err := Validate("")
	if err == nil {
		t.Fatal("expected empty name to be rejected")
	}

	var invalid *InvalidNameError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidNameError, got %T", err)
	}
	if invalid.Name != "" {
		t.Fatalf("expected error to carry the offending name, got %q", invalid.Name)
	}
}

func TestValidate_TooLong(t *testing.T) {
	err := Validate(strings.Repeat("x", 256))
	if err == nil {
		t.Fatal("expected 256-character name to be rejected")
	}
}

func TestValidate_MaxLength(t *testing.T) {
	if err := Validate(strings.Repeat("x", 255)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
