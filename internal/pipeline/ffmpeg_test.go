package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/heimdex/clipmerge/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunResult_IsSuccess(t *testing.T) {
	tests := []struct {
		exitCode int
		want     bool
	}{
		{0, true},
		{1, false},
		{-1, false},
		{127, false},
	}
	for _, tt := range tests {
		r := RunResult{ExitCode: tt.exitCode}
		if got := r.IsSuccess(); got != tt.want {
			t.Errorf("RunResult{ExitCode: %d}.IsSuccess() = %v, want %v", tt.exitCode, got, tt.want)
		}
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	if buf.String() != "hello" {
		t.Errorf("after short write got %q, want %q", buf.String(), "hello")
	}

	n, err := lw.Write([]byte("0123456789abc"))
	if err != nil || n != 13 {
		t.Fatalf("Write() = %d, %v; want 13, nil", n, err)
	}
	if buf.String() != "3456789abc" {
		t.Errorf("after overflow got %q, want %q", buf.String(), "3456789abc")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("0123456789", 4); got != "...6789" {
		t.Errorf("truncate long = %q", got)
	}
}

func TestDecodeArgs(t *testing.T) {
	got := decodeArgs("/clips/a.m4a", 44100, 2)
	want := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "/clips/a.m4a",
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ar", "44100", "-ac", "2",
		"pipe:1",
	}
	assert.Equal(t, want, got)
}

func TestEncodeArgs(t *testing.T) {
	mp3 := encodeArgs(44100, 2, "/out/kk.MP3", "192k")
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "s16le", "-ar", "44100", "-ac", "2",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame", "-b:a", "192k",
		"/out/kk.MP3",
	}, mp3)

	ogg := encodeArgs(22050, 1, "/out/kk.ogg", "")
	assert.NotContains(t, ogg, "libmp3lame")
	assert.NotContains(t, ogg, "-b:a")
	assert.Equal(t, "/out/kk.ogg", ogg[len(ogg)-1])
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc", "6.1.1"},
		{"ffmpeg version n7.0-static https://johnvansickle.com/ffmpeg/", "n7.0-static"},
		{"something odd\n", "something odd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseVersion(tt.in))
	}
}

func TestUnavailableFFmpeg(t *testing.T) {
	ff := NewUnavailableFFmpeg(logging.Discard())
	ctx := context.Background()

	_, err := ff.DecodePCM(ctx, "a.mp3", 44100, 2)
	assert.True(t, errors.Is(err, ErrFFmpegUnavailable))
	assert.True(t, errors.Is(ff.EncodePCM(ctx, nil, 44100, 2, "out.mp3", "192k"), ErrFFmpegUnavailable))
	_, err = ff.Version(ctx)
	assert.True(t, errors.Is(err, ErrFFmpegUnavailable))
}

// fakeFFmpeg writes a shell script that answers -version and echoes stdin to
// stdout for everything else.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023"
  exit 0
fi
for last; do :; done
if [ "$last" = "pipe:1" ]; then
  printf 'pcm'
  exit 0
fi
echo "cannot write $last" >&2
exit 3
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRealFFmpeg_WithFakeBinary(t *testing.T) {
	bin := fakeFFmpeg(t)
	ff := NewRealFFmpeg(bin, logging.Discard())
	ctx := context.Background()

	version, err := ff.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6.1.1", version)

	pcm, err := ff.DecodePCM(ctx, "a.mp3", 44100, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), pcm)

	err = ff.EncodePCM(ctx, []byte{0, 0}, 44100, 2, "out.mp3", "192k")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exited 3"))
	assert.True(t, strings.Contains(err.Error(), "cannot write out.mp3"))
}

func TestDoctor_Probe(t *testing.T) {
	bin := fakeFFmpeg(t)

	caps := NewDoctor(bin, logging.Discard()).Probe(context.Background())
	assert.True(t, caps.HasFFmpeg)
	assert.Equal(t, bin, caps.FFmpegPath)
	assert.Equal(t, "6.1.1", caps.FFmpegVersion)
	assert.IsType(t, &RealFFmpeg{}, caps.FFmpeg(logging.Discard()))
}

func TestDoctor_ProbeMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-ffmpeg-here")

	caps := NewDoctor(missing, logging.Discard()).Probe(context.Background())
	assert.False(t, caps.HasFFmpeg)
	assert.Empty(t, caps.FFmpegPath)
	assert.IsType(t, &UnavailableFFmpeg{}, caps.FFmpeg(logging.Discard()))
}
