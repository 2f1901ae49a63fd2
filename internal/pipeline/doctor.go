package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const doctorTimeout = 10 * time.Second

// Capabilities reports what the installed tooling can do.
type Capabilities struct {
	FFmpegPath    string
	FFmpegVersion string
	HasFFmpeg     bool
	ProbedAt      time.Time
}

// Doctor probes the environment for ffmpeg.
type Doctor struct {
	binary string
	logger *slog.Logger
}

// NewDoctor creates a doctor for the configured ffmpeg name or path.
func NewDoctor(binary string, logger *slog.Logger) *Doctor {
	return &Doctor{binary: binary, logger: logger}
}

// Probe locates ffmpeg and reads its version. A missing binary is reported in
// Capabilities, not as an error.
func (d *Doctor) Probe(ctx context.Context) *Capabilities {
	caps := &Capabilities{ProbedAt: time.Now()}

	path, err := resolveFFmpeg(d.binary)
	if err != nil {
		d.logger.Warn("ffmpeg not found; clips needing it will be skipped and mp3 export will fail",
			"binary", d.binary, "error", err)
		return caps
	}
	caps.FFmpegPath = path

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	version, err := NewRealFFmpeg(path, d.logger).Version(ctx)
	if err != nil {
		d.logger.Warn("ffmpeg version probe failed", "path", path, "error", err)
		return caps
	}
	caps.FFmpegVersion = version
	caps.HasFFmpeg = true

	d.logger.Info("doctor probe complete", "ffmpeg", path, "version", version)
	return caps
}

// FFmpeg returns a backend matching the probed capabilities.
func (c *Capabilities) FFmpeg(logger *slog.Logger) FFmpeg {
	if !c.HasFFmpeg {
		return NewUnavailableFFmpeg(logger)
	}
	return NewRealFFmpeg(c.FFmpegPath, logger)
}

// resolveFFmpeg finds a usable ffmpeg binary.
func resolveFFmpeg(preferred string) (string, error) {
	if preferred == "" {
		preferred = "ffmpeg"
	}
	p, err := exec.LookPath(preferred)
	if err != nil {
		return "", fmt.Errorf("configured ffmpeg %q not found: %w", preferred, err)
	}
	return p, nil
}
