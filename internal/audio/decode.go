package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/heimdex/clipmerge/internal/pipeline"
)

// ErrUnsupported is returned by a decoder that does not handle the file type.
var ErrUnsupported = errors.New("unsupported audio file")

// Decoder loads a whole file into memory at a fixed target format.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, path string) (*Segment, error)
}

// DecodeObserver is notified after each decode attempt.
type DecodeObserver func(backend string, elapsed time.Duration, err error)

// MP3Decoder decodes mp3 files in-process. Files whose sample rate differs
// from the target are refused with ErrFormatMismatch.
type MP3Decoder struct {
	Target Format
}

func (MP3Decoder) Name() string { return "mp3" }

func (d MP3Decoder) Decode(ctx context.Context, path string) (*Segment, error) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return nil, ErrUnsupported
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mp3 stream: %w", err)
	}
	if dec.SampleRate() != d.Target.SampleRate {
		return nil, fmt.Errorf("%w: %s is %dHz, want %dHz",
			ErrFormatMismatch, filepath.Base(path), dec.SampleRate(), d.Target.SampleRate)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo
	samples := convertChannels(samplesFromBytes(pcm), 2, d.Target.Channels)
	return NewSegment(d.Target, samples), nil
}

// WAVDecoder decodes PCM wav files in-process.
type WAVDecoder struct {
	Target Format
}

func (WAVDecoder) Name() string { return "wav" }

func (d WAVDecoder) Decode(ctx context.Context, path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, ErrUnsupported
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if int(dec.SampleRate) != d.Target.SampleRate {
		return nil, fmt.Errorf("%w: %s is %dHz, want %dHz",
			ErrFormatMismatch, filepath.Base(path), dec.SampleRate, d.Target.SampleRate)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16(v, int(dec.BitDepth))
	}
	samples = convertChannels(samples, int(dec.NumChans), d.Target.Channels)
	return NewSegment(d.Target, samples), nil
}

func toInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// FFmpegDecoder decodes any format ffmpeg understands, resampling to the
// target format on the way.
type FFmpegDecoder struct {
	FFmpeg pipeline.FFmpeg
	Target Format
}

func (FFmpegDecoder) Name() string { return "ffmpeg" }

func (d FFmpegDecoder) Decode(ctx context.Context, path string) (*Segment, error) {
	pcm, err := d.FFmpeg.DecodePCM(ctx, path, d.Target.SampleRate, d.Target.Channels)
	if err != nil {
		return nil, err
	}
	return NewSegment(d.Target, samplesFromBytes(pcm)), nil
}

// ChainDecoder tries each decoder in order and returns the first success.
type ChainDecoder struct {
	decoders []Decoder
	logger   *slog.Logger
	observe  DecodeObserver
}

// NewChainDecoder creates a chain. observe may be nil.
func NewChainDecoder(logger *slog.Logger, observe DecodeObserver, decoders ...Decoder) *ChainDecoder {
	return &ChainDecoder{decoders: decoders, logger: logger, observe: observe}
}

// NewDefaultDecoder prefers the in-process decoders and falls back to ffmpeg.
func NewDefaultDecoder(target Format, ff pipeline.FFmpeg, logger *slog.Logger, observe DecodeObserver) *ChainDecoder {
	return NewChainDecoder(logger, observe,
		MP3Decoder{Target: target},
		WAVDecoder{Target: target},
		FFmpegDecoder{FFmpeg: ff, Target: target},
	)
}

func (c *ChainDecoder) Name() string { return "chain" }

func (c *ChainDecoder) Decode(ctx context.Context, path string) (*Segment, error) {
	var errs []error
	for _, d := range c.decoders {
		start := time.Now()
		seg, err := d.Decode(ctx, path)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if c.observe != nil {
			c.observe(d.Name(), time.Since(start), err)
		}
		if err == nil {
			return seg, nil
		}
		if c.logger != nil {
			c.logger.Debug("decoder declined file", "decoder", d.Name(), "path", path, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	return nil, errors.Join(errs...)
}
