package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every CLIPMERGE_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "CLIPMERGE_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sheet() != DefaultSheet {
		t.Errorf("Sheet = %q, want %q", cfg.Sheet(), DefaultSheet)
	}
	if cfg.HeaderRow() != DefaultHeaderRow {
		t.Errorf("HeaderRow = %d, want %d", cfg.HeaderRow(), DefaultHeaderRow)
	}
	if cfg.Gap() != 0 {
		t.Errorf("Gap = %v, want 0", cfg.Gap())
	}
	if cfg.GapPolicy() != "leading" {
		t.Errorf("GapPolicy = %q, want leading", cfg.GapPolicy())
	}
	if cfg.LeadIn() != 0 {
		t.Errorf("LeadIn = %v, want 0", cfg.LeadIn())
	}
	if cfg.MergedName() != "kk.mp3" {
		t.Errorf("MergedName = %q, want kk.mp3", cfg.MergedName())
	}
	if cfg.Labels().Phonetic != "音標" {
		t.Errorf("Labels.Phonetic = %q", cfg.Labels().Phonetic)
	}
	if cfg.LedgerPath() != "" || cfg.MetricsFile() != "" || cfg.CueSheet() != "" {
		t.Error("optional outputs should be disabled by default")
	}
	if !cfg.Progress() {
		t.Error("progress should default to true")
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGapMs, "1000")
	t.Setenv(EnvGapPolicy, "between")
	t.Setenv(EnvLeadInMs, "250")
	t.Setenv(EnvAudioExt, "wav")
	t.Setenv(EnvOutputAudio, "out/merged.wav")
	t.Setenv(EnvProgress, "false")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gap() != time.Second {
		t.Errorf("Gap = %v, want 1s", cfg.Gap())
	}
	if cfg.GapPolicy() != "between" {
		t.Errorf("GapPolicy = %q, want between", cfg.GapPolicy())
	}
	if cfg.LeadIn() != 250*time.Millisecond {
		t.Errorf("LeadIn = %v, want 250ms", cfg.LeadIn())
	}
	if cfg.AudioExt() != ".wav" {
		t.Errorf("AudioExt = %q, want .wav", cfg.AudioExt())
	}
	if cfg.MergedName() != "merged.wav" {
		t.Errorf("MergedName = %q, want merged.wav", cfg.MergedName())
	}
	if cfg.Progress() {
		t.Error("progress should be disabled")
	}
}

func TestNew_BaseDirResolvesRelativePaths(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	t.Setenv(EnvBaseDir, base)
	t.Setenv(EnvLedgerPath, "runs.db")
	t.Setenv(EnvOutputText, "/abs/kk.txt")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := cfg.Workbook(), filepath.Join(base, DefaultWorkbook); got != want {
		t.Errorf("Workbook = %q, want %q", got, want)
	}
	if got, want := cfg.LedgerPath(), filepath.Join(base, "runs.db"); got != want {
		t.Errorf("LedgerPath = %q, want %q", got, want)
	}
	if cfg.OutputText() != "/abs/kk.txt" {
		t.Errorf("OutputText = %q, absolute paths must be kept", cfg.OutputText())
	}
}

func TestNew_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "clipmerge.yaml")
	content := `
sheet: vocab
header_row: 3
gap_ms: 500
labels:
  phonetic: IPA
  clip: Audio
progress: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvHeaderRow, "4")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sheet() != "vocab" {
		t.Errorf("Sheet = %q, want vocab", cfg.Sheet())
	}
	if cfg.HeaderRow() != 4 {
		t.Errorf("HeaderRow = %d, env must win over file", cfg.HeaderRow())
	}
	if cfg.Gap() != 500*time.Millisecond {
		t.Errorf("Gap = %v, want 500ms", cfg.Gap())
	}
	labels := cfg.Labels()
	if labels.Phonetic != "IPA" || labels.Clip != "Audio" {
		t.Errorf("Labels = %+v", labels)
	}
	if labels.Start != DefaultLabelStart || labels.End != DefaultLabelEnd {
		t.Errorf("unset labels must keep defaults, got %+v", labels)
	}
	if cfg.Progress() {
		t.Error("progress should be disabled by file")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric gap", EnvGapMs, "one"},
		{"negative gap", EnvGapMs, "-1"},
		{"unknown policy", EnvGapPolicy, "trailing"},
		{"zero header row", EnvHeaderRow, "0"},
		{"three channels", EnvChannels, "3"},
		{"bad progress", EnvProgress, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := New(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestNew_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := New(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
