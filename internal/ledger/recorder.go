package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/heimdex/clipmerge/internal/merge"
)

// RunParams describes the inputs of a run.
type RunParams struct {
	Workbook    string
	Sheet       string
	OutputAudio string
	Gap         time.Duration
	GapPolicy   string
	LeadIn      time.Duration
}

// Recorder writes run lifecycle records. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger, now: time.Now}
}

// Start inserts a run in the running state.
func (r *Recorder) Start(ctx context.Context, p RunParams) (*Run, error) {
	run := &Run{
		ID:          NewID(),
		Status:      RunStatusRunning,
		Workbook:    p.Workbook,
		Sheet:       p.Sheet,
		OutputAudio: p.OutputAudio,
		GapMs:       int(p.Gap / time.Millisecond),
		GapPolicy:   p.GapPolicy,
		LeadInMs:    int(p.LeadIn / time.Millisecond),
	}
	if r == nil {
		return run, nil
	}
	run.StartedAt = r.now()
	if err := r.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// Complete stores every row outcome of res and marks the run completed.
func (r *Recorder) Complete(ctx context.Context, run *Run, res *merge.Result) error {
	if r == nil {
		return nil
	}
	if err := r.repo.AddOutcomes(ctx, Outcomes(run.ID, res)); err != nil {
		return fmt.Errorf("failed to record row outcomes: %w", err)
	}

	finished := r.now()
	run.Status = RunStatusCompleted
	run.RowsMerged = len(res.Placements)
	run.RowsSkipped = len(res.Skips)
	run.DurationMs = res.DurationMs
	run.FinishedAt = &finished
	if err := r.repo.FinishRun(ctx, run); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if r.logger != nil {
		r.logger.Debug("run recorded", "run_id", run.ID, "rows_merged", run.RowsMerged)
	}
	return nil
}

// Fail marks the run failed with cause.
func (r *Recorder) Fail(ctx context.Context, run *Run, cause error) error {
	if r == nil || run == nil {
		return nil
	}
	finished := r.now()
	run.Status = RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = &finished
	return r.repo.FinishRun(ctx, run)
}

// Outcomes flattens a merge result into per-row records ordered by row.
func Outcomes(runID string, res *merge.Result) []RowOutcome {
	out := make([]RowOutcome, 0, len(res.Placements)+len(res.Skips))
	for _, p := range res.Placements {
		start, end := p.Start, p.End
		out = append(out, RowOutcome{
			RunID:       runID,
			Row:         p.Row,
			Clip:        p.Clip,
			Outcome:     OutcomeMerged,
			SourcePath:  p.Source,
			Strategy:    p.Strategy,
			MergedStart: &start,
			MergedEnd:   &end,
		})
	}
	for _, s := range res.Skips {
		o := RowOutcome{RunID: runID, Row: s.Row, Clip: s.Clip, Outcome: string(s.Reason)}
		if s.Err != nil {
			o.Error = s.Err.Error()
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}
