package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if strings.ContainsAny(got, "\n\r\t\x00") {
		t.Fatalf("sanitize output contains control chars: %q", got)
	}
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_KeepsPhoneticLetters(t *testing.T) {
	input := "ˈæp.əl (a01)"
	if got := SanitizeName(input, 100); got != input {
		t.Fatalf("SanitizeName changed allowed chars: got %q want %q", got, input)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("clips/a01:take|2", 100)
	if got != "clips_a01_take_2" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestEnsureParentDir_CreatesNested(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "audio", "deep", "kk.mp3")

	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir(%q) error = %v", path, err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Fatalf("parent dir not created: %v", err)
	}
	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("second EnsureParentDir(%q) error = %v", path, err)
	}
}

func TestEnsureParentDir_Empty(t *testing.T) {
	if err := EnsureParentDir("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestEnsureDir_NotADir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if err := EnsureDir(filePath); err == nil {
		t.Fatalf("EnsureDir(%q) expected non-directory error", filePath)
	}
}
