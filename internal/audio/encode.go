package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/heimdex/clipmerge/internal/pipeline"
)

// Encoder writes a segment to a file.
type Encoder interface {
	Encode(ctx context.Context, seg *Segment, path string) error
}

// WAVEncoder writes 16-bit PCM wav files in-process.
type WAVEncoder struct{}

func (WAVEncoder) Encode(ctx context.Context, seg *Segment, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}

	enc := wav.NewEncoder(f, seg.Format.SampleRate, 16, seg.Format.Channels, 1)
	data := make([]int, len(seg.Samples))
	for i, v := range seg.Samples {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: seg.Format.Channels,
			SampleRate:  seg.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return f.Close()
}

// FFmpegEncoder pipes PCM into ffmpeg. mp3 output uses libmp3lame at Bitrate.
type FFmpegEncoder struct {
	FFmpeg  pipeline.FFmpeg
	Bitrate string
}

func (e FFmpegEncoder) Encode(ctx context.Context, seg *Segment, path string) error {
	return e.FFmpeg.EncodePCM(ctx, seg.Bytes(), seg.Format.SampleRate, seg.Format.Channels, path, e.Bitrate)
}

// EncoderFor picks the encoder for the output file extension.
func EncoderFor(path string, ff pipeline.FFmpeg, bitrate string) Encoder {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return WAVEncoder{}
	}
	return FFmpegEncoder{FFmpeg: ff, Bitrate: bitrate}
}
