// Package pipeline wraps the ffmpeg binary used to decode source clips that the
// pure-Go decoders cannot read and to encode the merged output.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrFFmpegUnavailable is returned by every operation when no ffmpeg binary
// could be located at startup.
var ErrFFmpegUnavailable = errors.New("ffmpeg not available")

// FFmpeg converts between audio files and raw signed 16-bit little-endian PCM.
type FFmpeg interface {
	// DecodePCM decodes path to interleaved s16le at the given rate and channel count.
	DecodePCM(ctx context.Context, path string, sampleRate, channels int) ([]byte, error)

	// EncodePCM writes interleaved s16le PCM to outPath. The container and codec
	// follow the output extension; bitrate applies to lossy codecs.
	EncodePCM(ctx context.Context, pcm []byte, sampleRate, channels int, outPath, bitrate string) error

	// Version returns the first line of `ffmpeg -version`.
	Version(ctx context.Context) (string, error)
}

// RealFFmpeg runs the ffmpeg binary as a subprocess.
type RealFFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewRealFFmpeg creates an ffmpeg backend for the resolved binary path.
func NewRealFFmpeg(binary string, logger *slog.Logger) *RealFFmpeg {
	return &RealFFmpeg{binary: binary, logger: logger}
}

func (f *RealFFmpeg) DecodePCM(ctx context.Context, path string, sampleRate, channels int) ([]byte, error) {
	var out bytes.Buffer
	res := execCommand(ctx, f.logger, f.binary, nil, &out, decodeArgs(path, sampleRate, channels)...)
	if !res.IsSuccess() {
		return nil, fmt.Errorf("ffmpeg decode exited %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return out.Bytes(), nil
}

func (f *RealFFmpeg) EncodePCM(ctx context.Context, pcm []byte, sampleRate, channels int, outPath, bitrate string) error {
	res := execCommand(ctx, f.logger, f.binary, bytes.NewReader(pcm), nil, encodeArgs(sampleRate, channels, outPath, bitrate)...)
	if !res.IsSuccess() {
		return fmt.Errorf("ffmpeg encode exited %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return nil
}

func (f *RealFFmpeg) Version(ctx context.Context) (string, error) {
	var out bytes.Buffer
	res := execCommand(ctx, f.logger, f.binary, nil, &out, "-version")
	if !res.IsSuccess() {
		return "", fmt.Errorf("ffmpeg -version exited %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return parseVersion(out.String()), nil
}

// UnavailableFFmpeg stands in when no binary was found. Every call fails
// with ErrFFmpegUnavailable.
type UnavailableFFmpeg struct {
	logger *slog.Logger
}

func NewUnavailableFFmpeg(logger *slog.Logger) *UnavailableFFmpeg {
	return &UnavailableFFmpeg{logger: logger}
}

func (f *UnavailableFFmpeg) DecodePCM(ctx context.Context, path string, sampleRate, channels int) ([]byte, error) {
	f.logger.Debug("ffmpeg unavailable: decode requested", "path", path)
	return nil, ErrFFmpegUnavailable
}

func (f *UnavailableFFmpeg) EncodePCM(ctx context.Context, pcm []byte, sampleRate, channels int, outPath, bitrate string) error {
	f.logger.Debug("ffmpeg unavailable: encode requested", "output", outPath)
	return ErrFFmpegUnavailable
}

func (f *UnavailableFFmpeg) Version(ctx context.Context) (string, error) {
	return "", ErrFFmpegUnavailable
}

func decodeArgs(path string, sampleRate, channels int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}
}

func encodeArgs(sampleRate, channels int, outPath, bitrate string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
	}
	if strings.EqualFold(filepath.Ext(outPath), ".mp3") {
		args = append(args, "-codec:a", "libmp3lame")
	}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	return append(args, outPath)
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}
