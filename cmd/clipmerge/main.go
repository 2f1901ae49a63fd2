package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heimdex/clipmerge/internal/audio"
	"github.com/heimdex/clipmerge/internal/config"
	"github.com/heimdex/clipmerge/internal/db"
	"github.com/heimdex/clipmerge/internal/export"
	"github.com/heimdex/clipmerge/internal/ledger"
	"github.com/heimdex/clipmerge/internal/logging"
	"github.com/heimdex/clipmerge/internal/merge"
	"github.com/heimdex/clipmerge/internal/metrics"
	"github.com/heimdex/clipmerge/internal/pipeline"
	"github.com/heimdex/clipmerge/internal/resolve"
	"github.com/heimdex/clipmerge/internal/sheet"
	"github.com/heimdex/clipmerge/internal/ui"
)

func main() {
	if err := run(); err != nil {
		var missing *sheet.MissingColumnsError
		switch {
		case errors.Is(err, sheet.ErrWorkbookNotFound), errors.Is(err, sheet.ErrSheetNotFound):
			log.Fatalf("input error: %v", err)
		case errors.As(err, &missing):
			log.Fatalf("header row %d is missing columns %v", missing.HeaderRow, missing.Labels)
		default:
			log.Fatalf("fatal error: %v", err)
		}
	}
}

func run() error {
	startTime := time.Now()
	ctx := context.Background()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser := logging.NewLoggerWithOptions(logging.Options{
		Level:  cfg.LogLevel(),
		Format: cfg.LogFormat(),
		File:   cfg.LogFile(),
	})
	defer logCloser.Close()

	logger.Info("starting clipmerge",
		"version", config.Version,
		"workbook", logging.SanitizePath(cfg.Workbook()),
		"sheet", cfg.Sheet(),
	)

	caps := pipeline.NewDoctor(cfg.FFmpegPath(), logging.WithComponent(logger, "doctor")).Probe(ctx)
	ff := caps.FFmpeg(logging.WithComponent(logger, "ffmpeg"))

	if info, err := os.Stat(cfg.SourceDir()); err != nil || !info.IsDir() {
		logger.Warn("source directory not found; only literal paths will resolve",
			"source_dir", logging.SanitizePath(cfg.SourceDir()))
	}

	for _, p := range []string{cfg.OutputAudio(), cfg.OutputWorkbook(), cfg.OutputText(),
		cfg.LogFile(), cfg.LedgerPath(), cfg.MetricsFile(), cfg.CueSheet()} {
		if p == "" {
			continue
		}
		if err := export.EnsureParentDir(p); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var recorder *ledger.Recorder
	if cfg.LedgerPath() != "" {
		database, err := db.New(cfg.LedgerPath(), logging.WithComponent(logger, "db"))
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer database.Close()
		recorder = ledger.NewRecorder(ledger.NewRepository(database.Conn()), logging.WithComponent(logger, "ledger"))
	}

	runRec, err := recorder.Start(ctx, ledger.RunParams{
		Workbook:    cfg.Workbook(),
		Sheet:       cfg.Sheet(),
		OutputAudio: cfg.OutputAudio(),
		Gap:         cfg.Gap(),
		GapPolicy:   cfg.GapPolicy(),
		LeadIn:      cfg.LeadIn(),
	})
	if err != nil {
		return err
	}
	logger = logging.WithRunID(logger, runRec.ID)

	res, err := mergeWorkbook(ctx, cfg, ff, logger)
	if err != nil {
		if ferr := recorder.Fail(ctx, runRec, err); ferr != nil {
			logger.Error("failed to record run failure", "error", ferr)
		}
		return err
	}

	if err := recorder.Complete(ctx, runRec, res); err != nil {
		logger.Error("failed to record run", "error", err)
	}

	finished := time.Now()
	metrics.RecordRun(res.DurationMs, finished)
	if path := cfg.MetricsFile(); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Error("failed to write metrics", "error", err)
		}
	}

	logger.Info("merge complete",
		"rows_updated", len(res.Placements),
		"rows_skipped", len(res.Skips),
		"merged_duration_ms", res.DurationMs,
		"audio", logging.SanitizePath(cfg.OutputAudio()),
		"workbook", logging.SanitizePath(cfg.OutputWorkbook()),
		"text", logging.SanitizePath(cfg.OutputText()),
		"elapsed", finished.Sub(startTime).String(),
	)
	return nil
}

// mergeWorkbook loads the sheet, merges every eligible row and writes the
// audio, workbook, text and optional cue sheet outputs.
func mergeWorkbook(ctx context.Context, cfg config.Config, ff pipeline.FFmpeg, logger *slog.Logger) (*merge.Result, error) {
	table, err := sheet.Load(cfg.Workbook(), cfg.Sheet(), cfg.HeaderRow())
	if err != nil {
		return nil, err
	}

	l := cfg.Labels()
	cols, err := sheet.FindColumns(table, cfg.HeaderRow(), sheet.Labels{
		Phonetic: l.Phonetic,
		Clip:     l.Clip,
		Start:    l.Start,
		End:      l.End,
	})
	if err != nil {
		return nil, err
	}

	format := audio.Format{SampleRate: cfg.SampleRate(), Channels: cfg.Channels()}
	resolver := resolve.Default(cfg.SourceDir(), cfg.AudioExt(), logging.WithComponent(logger, "resolve"))
	decoder := audio.NewDefaultDecoder(format, ff, logging.WithComponent(logger, "decode"), metrics.RecordDecode)

	merger, err := merge.New(resolver, decoder, merge.Options{
		MergedName: cfg.MergedName(),
		HeaderRow:  cfg.HeaderRow(),
		Gap:        cfg.Gap(),
		GapPolicy:  merge.GapPolicy(cfg.GapPolicy()),
		LeadIn:     cfg.LeadIn(),
		Format:     format,
	}, logger)
	if err != nil {
		return nil, err
	}

	progress := ui.NewProgress(os.Stderr, merger.Rows(table), cfg.Progress())
	merger.OnRow(func(ev merge.RowEvent) {
		progress.Increment()
		if ev.Placement != nil {
			metrics.RecordRow(ledger.OutcomeMerged)
			metrics.RecordResolve(ev.Placement.Strategy)
			return
		}
		metrics.RecordRow(string(ev.Skip.Reason))
	})

	res, err := merger.Merge(ctx, table, cols)
	progress.Done()
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	if res.Audio != nil {
		enc := audio.EncoderFor(cfg.OutputAudio(), ff, cfg.Bitrate())
		if err := enc.Encode(ctx, res.Audio, cfg.OutputAudio()); err != nil {
			return nil, fmt.Errorf("failed to write merged audio: %w", err)
		}
		logger.Info("merged audio written", "path", logging.SanitizePath(cfg.OutputAudio()),
			"duration_ms", res.DurationMs)
	} else {
		logger.Warn("no rows were merged; audio output not written")
	}

	if err := sheet.Save(cfg.Workbook(), cfg.OutputWorkbook(), table, res.Table); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := export.WriteTSVFile(cfg.OutputText(), res.Table); err != nil {
		return nil, fmt.Errorf("failed to write text export: %w", err)
	}
	if path := cfg.CueSheet(); path != "" {
		if err := export.WriteCueSheet(path, cfg.MergedName(), res.Placements); err != nil {
			return nil, fmt.Errorf("failed to write cue sheet: %w", err)
		}
	}
	return res, nil
}
