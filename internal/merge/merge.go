// Package merge builds the merged timeline: every eligible row's clip is
// excerpted, spliced onto a running buffer and the row is rewritten to point
// at its position in the merged audio.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/clipmerge/internal/audio"
	"github.com/heimdex/clipmerge/internal/logging"
	"github.com/heimdex/clipmerge/internal/resolve"
	"github.com/heimdex/clipmerge/internal/sheet"
)

// GapPolicy decides which excerpts are preceded by the silence gap.
type GapPolicy string

const (
	// GapLeading inserts the gap before every excerpt, the first included.
	GapLeading GapPolicy = "leading"
	// GapBetween inserts the gap only between consecutive excerpts.
	GapBetween GapPolicy = "between"
)

// Reason explains why a row was left untouched.
type Reason string

const (
	ReasonIneligible      Reason = "ineligible"
	ReasonUnresolved      Reason = "unresolved"
	ReasonInvalidInterval Reason = "invalid_interval"
	ReasonDecodeFailed    Reason = "decode_failed"
)

// Resolver locates the audio file for a clip reference.
type Resolver interface {
	Resolve(ref string) (resolve.Match, bool)
}

// Options control the merge.
type Options struct {
	MergedName string        // written into the clip column of merged rows
	HeaderRow  int           // rows after this one are processed
	Gap        time.Duration // silence inserted per GapPolicy; 0 disables
	GapPolicy  GapPolicy
	LeadIn     time.Duration // subtracted from the reported start only
	Format     audio.Format  // PCM format of the merged buffer
}

// Placement records where an accepted row landed.
type Placement struct {
	Row           int
	Clip          string
	Source        string
	Strategy      string
	SourceStartMs int
	SourceEndMs   int
	MergedStartMs int // splice point
	MergedEndMs   int
	Start         float64 // reported seconds, lead-in applied
	End           float64
}

// DurationMs returns the excerpt length.
func (p Placement) DurationMs() int { return p.MergedEndMs - p.MergedStartMs }

// Skip records a row left unmodified.
type Skip struct {
	Row    int
	Clip   string
	Reason Reason
	Err    error
}

// RowEvent is reported once per processed row. Exactly one of Placement and
// Skip is set.
type RowEvent struct {
	Row       int
	Placement *Placement
	Skip      *Skip
}

// Result is the outcome of a merge.
type Result struct {
	Table      *sheet.Table
	Audio      *audio.Segment // nil when no row was accepted
	Placements []Placement
	Skips      []Skip
	DurationMs int
}

// Merger runs the timeline merge over a table.
type Merger struct {
	resolver Resolver
	decoder  audio.Decoder
	opts     Options
	logger   *slog.Logger
	onRow    func(RowEvent)
}

// New creates a Merger.
func New(resolver Resolver, decoder audio.Decoder, opts Options, logger *slog.Logger) (*Merger, error) {
	if err := opts.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid output format: %w", err)
	}
	if opts.Gap < 0 || opts.LeadIn < 0 {
		return nil, errors.New("gap and lead-in must not be negative")
	}
	switch opts.GapPolicy {
	case "":
		opts.GapPolicy = GapLeading
	case GapLeading, GapBetween:
	default:
		return nil, fmt.Errorf("unknown gap policy %q", opts.GapPolicy)
	}
	if opts.HeaderRow < 0 {
		return nil, fmt.Errorf("invalid header row %d", opts.HeaderRow)
	}
	return &Merger{
		resolver: resolver,
		decoder:  decoder,
		opts:     opts,
		logger:   logging.WithComponent(logger, "merge"),
	}, nil
}

// OnRow registers a callback invoked after every processed row.
func (m *Merger) OnRow(fn func(RowEvent)) {
	m.onRow = fn
}

// Rows returns how many rows Merge will visit for a table.
func (m *Merger) Rows(t *sheet.Table) int {
	return max(t.Len()-m.opts.HeaderRow, 0)
}

// Merge processes the rows below the header in order. The input table is not
// modified; the result carries a new table in which only accepted rows' clip,
// start and end cells differ.
func (m *Merger) Merge(ctx context.Context, t *sheet.Table, cols sheet.Columns) (*Result, error) {
	res := &Result{}
	gapMs := int(m.opts.Gap / time.Millisecond)
	leadInMs := int(m.opts.LeadIn / time.Millisecond)

	var (
		merged *audio.Segment
		curMs  int
		edits  []sheet.Edit
	)

	for r := m.opts.HeaderRow + 1; r <= t.Len(); r++ {
		log := logging.WithRow(m.logger, r)
		clip := strings.TrimSpace(t.Cell(r, cols.Clip).String())

		skip := func(reason Reason, err error) {
			s := Skip{Row: r, Clip: clip, Reason: reason, Err: err}
			res.Skips = append(res.Skips, s)
			m.emit(RowEvent{Row: r, Skip: &s})
		}

		start, okStart := t.Cell(r, cols.Start).Float()
		end, okEnd := t.Cell(r, cols.End).Float()
		if clip == "" || !okStart || !okEnd || end <= start {
			if rowBlank(t, r, cols) {
				log.Debug("row skipped: blank")
			} else {
				log.Warn("row skipped: ineligible", "clip", clip,
					"start", t.Cell(r, cols.Start).String(), "end", t.Cell(r, cols.End).String())
			}
			skip(ReasonIneligible, nil)
			continue
		}

		match, ok := m.resolver.Resolve(clip)
		if !ok {
			log.Warn("row skipped: audio not found", "clip", clip)
			skip(ReasonUnresolved, nil)
			continue
		}

		seg, err := m.decoder.Decode(ctx, match.Path)
		if err == nil && seg.Format != m.opts.Format {
			err = fmt.Errorf("%w: decoded %s, want %s", audio.ErrFormatMismatch, seg.Format, m.opts.Format)
		}
		if err != nil {
			log.Warn("row skipped: decode failed", "clip", clip,
				"path", logging.SanitizePath(match.Path), "error", err)
			skip(ReasonDecodeFailed, err)
			continue
		}

		lengthMs := seg.DurationMs()
		startMs := secondsToClipMs(start, lengthMs)
		endMs := secondsToClipMs(end, lengthMs)
		if endMs <= startMs {
			log.Warn("row skipped: interval outside clip", "clip", clip,
				"start", start, "end", end, "clip_ms", lengthMs)
			skip(ReasonInvalidInterval, fmt.Errorf("interval [%g, %g) outside %dms clip", start, end, lengthMs))
			continue
		}

		excerpt := seg.Slice(startMs, endMs)
		excerptMs := excerpt.DurationMs()

		if merged == nil {
			merged = audio.Silence(m.opts.Format, 0)
		}
		if gapMs > 0 && (m.opts.GapPolicy == GapLeading || len(res.Placements) > 0) {
			if err := merged.Append(audio.Silence(m.opts.Format, gapMs)); err != nil {
				return nil, err
			}
			curMs += gapMs
		}
		if err := merged.Append(excerpt); err != nil {
			return nil, err
		}

		p := Placement{
			Row:           r,
			Clip:          clip,
			Source:        match.Path,
			Strategy:      match.Strategy,
			SourceStartMs: startMs,
			SourceEndMs:   endMs,
			MergedStartMs: curMs,
			MergedEndMs:   curMs + excerptMs,
			Start:         msToSeconds(max(curMs-leadInMs, 0)),
			End:           msToSeconds(curMs + excerptMs),
		}
		curMs += excerptMs

		edits = append(edits,
			sheet.Edit{Row: r, Col: cols.Clip, Value: sheet.Text(m.opts.MergedName)},
			sheet.Edit{Row: r, Col: cols.Start, Value: sheet.Number(p.Start)},
			sheet.Edit{Row: r, Col: cols.End, Value: sheet.Number(p.End)},
		)
		res.Placements = append(res.Placements, p)

		log.Info("row merged", "source", filepath.Base(match.Path), "strategy", match.Strategy,
			"start", p.Start, "end", p.End)
		m.emit(RowEvent{Row: r, Placement: &p})
	}

	res.Table = t.With(edits...)
	res.Audio = merged
	res.DurationMs = curMs

	m.logger.Info("merge complete",
		"rows_merged", len(res.Placements),
		"rows_skipped", len(res.Skips),
		"duration_ms", curMs,
	)
	return res, nil
}

func (m *Merger) emit(ev RowEvent) {
	if m.onRow != nil {
		m.onRow(ev)
	}
}

// rowBlank reports whether the clip, start and end cells are all empty.
func rowBlank(t *sheet.Table, r int, cols sheet.Columns) bool {
	for _, c := range []int{cols.Clip, cols.Start, cols.End} {
		if strings.TrimSpace(t.Cell(r, c).String()) != "" {
			return false
		}
	}
	return true
}

// secondsToClipMs truncates an offset to whole milliseconds within
// [0, lengthMs]. The bound is applied before the integer conversion, so
// huge finite offsets cannot overflow.
func secondsToClipMs(sec float64, lengthMs int) int {
	ms := sec * 1000
	switch {
	case ms <= 0:
		return 0
	case ms >= float64(lengthMs):
		return lengthMs
	}
	return int(ms)
}

// msToSeconds converts whole milliseconds to seconds. The quotient is the
// closest float to the three-decimal value.
func msToSeconds(ms int) float64 {
	return float64(ms) / 1000
}
