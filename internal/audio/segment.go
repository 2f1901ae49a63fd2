// Package audio holds decoded clips as in-memory 16-bit PCM and converts them
// to and from files.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrFormatMismatch is returned when two segments or a file and the target
// format disagree on sample rate or channel count.
var ErrFormatMismatch = errors.New("audio format mismatch")

// Format describes interleaved PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate checks that the format can hold samples.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Segment is a run of interleaved signed 16-bit samples.
type Segment struct {
	Format  Format
	Samples []int16
}

// NewSegment wraps samples. A trailing partial frame is dropped.
func NewSegment(format Format, samples []int16) *Segment {
	if format.Channels > 0 {
		samples = samples[:len(samples)-len(samples)%format.Channels]
	}
	return &Segment{Format: format, Samples: samples}
}

// Silence returns ms milliseconds of digital silence.
func Silence(format Format, ms int) *Segment {
	frames := msToFrames(ms, format.SampleRate)
	return &Segment{Format: format, Samples: make([]int16, frames*format.Channels)}
}

// Frames returns the number of sample frames.
func (s *Segment) Frames() int {
	if s.Format.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Format.Channels
}

// DurationMs returns the length rounded to the nearest millisecond.
func (s *Segment) DurationMs() int {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return int(math.Round(float64(s.Frames()) * 1000 / float64(s.Format.SampleRate)))
}

// Slice returns the excerpt [startMs, endMs). Bounds are clamped to the
// segment. The samples are copied.
func (s *Segment) Slice(startMs, endMs int) *Segment {
	frames := s.Frames()
	from := min(max(msToFrames(startMs, s.Format.SampleRate), 0), frames)
	to := min(max(msToFrames(endMs, s.Format.SampleRate), from), frames)
	ch := s.Format.Channels
	return &Segment{
		Format:  s.Format,
		Samples: append([]int16(nil), s.Samples[from*ch:to*ch]...),
	}
}

// Append adds o to the end of s.
func (s *Segment) Append(o *Segment) error {
	if s.Format != o.Format {
		return fmt.Errorf("%w: cannot append %s to %s", ErrFormatMismatch, o.Format, s.Format)
	}
	s.Samples = append(s.Samples, o.Samples...)
	return nil
}

// Bytes encodes the samples as little-endian s16.
func (s *Segment) Bytes() []byte {
	out := make([]byte, len(s.Samples)*2)
	for i, v := range s.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// samplesFromBytes decodes little-endian s16. A trailing odd byte is ignored.
func samplesFromBytes(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func msToFrames(ms, sampleRate int) int {
	return int(int64(ms) * int64(sampleRate) / 1000)
}

// convertChannels remixes interleaved samples from one channel layout to
// another. Down-mixing to mono averages, up-mixing from mono duplicates and
// any other change keeps the leading channels.
func convertChannels(samples []int16, from, to int) []int16 {
	if from == to || from <= 0 || to <= 0 {
		return samples
	}
	frames := len(samples) / from
	out := make([]int16, frames*to)
	for f := 0; f < frames; f++ {
		frame := samples[f*from : (f+1)*from]
		switch {
		case to == 1:
			sum := 0
			for _, v := range frame {
				sum += int(v)
			}
			out[f] = int16(sum / from)
		case from == 1:
			for c := 0; c < to; c++ {
				out[f*to+c] = frame[0]
			}
		default:
			for c := 0; c < to; c++ {
				if c < from {
					out[f*to+c] = frame[c]
				}
			}
		}
	}
	return out
}
