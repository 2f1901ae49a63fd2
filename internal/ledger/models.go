// Package ledger records each merge run and its per-row outcomes in SQLite.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"

	OutcomeMerged = "merged"
)

type Run struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Workbook    string     `json:"workbook"`
	Sheet       string     `json:"sheet"`
	OutputAudio string     `json:"output_audio"`
	GapMs       int        `json:"gap_ms"`
	GapPolicy   string     `json:"gap_policy"`
	LeadInMs    int        `json:"lead_in_ms"`
	RowsMerged  int        `json:"rows_merged"`
	RowsSkipped int        `json:"rows_skipped"`
	DurationMs  int        `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// RowOutcome is the fate of one sheet row in a run. Outcome is "merged" or a
// skip reason.
type RowOutcome struct {
	RunID       string   `json:"run_id"`
	Row         int      `json:"row"`
	Clip        string   `json:"clip"`
	Outcome     string   `json:"outcome"`
	SourcePath  string   `json:"source_path,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
	MergedStart *float64 `json:"merged_start,omitempty"`
	MergedEnd   *float64 `json:"merged_end,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func NewID() string {
	return uuid.NewString()
}
