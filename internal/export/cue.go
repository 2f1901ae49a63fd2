package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/clipmerge/internal/merge"
)

const (
	cueFPS         = 30
	cueClipNameLen = 64
)

// CueEvent is one excerpt placed on the merged timeline.
type CueEvent struct {
	ClipName      string
	MediaPath     string
	SourceStartMs int
	SourceEndMs   int
	RecordStartMs int
	RecordEndMs   int
}

// CueEvents converts merge placements into cue sheet events.
func CueEvents(placements []merge.Placement) []CueEvent {
	events := make([]CueEvent, 0, len(placements))
	for _, p := range placements {
		events = append(events, CueEvent{
			ClipName:      p.Clip,
			MediaPath:     p.Source,
			SourceStartMs: p.SourceStartMs,
			SourceEndMs:   p.SourceEndMs,
			RecordStartMs: p.MergedStartMs,
			RecordEndMs:   p.MergedEndMs,
		})
	}
	return events
}

// GenerateCueSheet renders an audio-only CMX3600-style EDL with non-drop
// timecode at fps (cueFPS when fps <= 0). Record times are the splice points
// in the merged file, so silence gaps show up as holes between events.
func GenerateCueSheet(events []CueEvent, title string, fps int) string {
	if fps <= 0 {
		fps = cueFPS
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", SanitizeName(title, cueClipNameLen)),
		"FCM: NON-DROP FRAME",
		"",
	}

	for i, ev := range events {
		srcIn := msToTimecode(ev.SourceStartMs, fps)
		srcOut := msToTimecode(ev.SourceEndMs, fps)
		recIn := msToTimecode(ev.RecordStartMs, fps)
		recOut := msToTimecode(ev.RecordEndMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "A", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(ev.ClipName, cueClipNameLen)),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// WriteCueSheet writes the cue sheet for placements to path.
func WriteCueSheet(path, title string, placements []merge.Placement) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	edl := GenerateCueSheet(CueEvents(placements), title, cueFPS)
	if err := os.WriteFile(path, []byte(edl), 0o644); err != nil {
		return fmt.Errorf("failed to write cue sheet %s: %w", filepath.Base(path), err)
	}
	return nil
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
