// Package config provides configuration management for clipmerge.
// Configuration is loaded from an optional YAML file and environment variables,
// on top of defaults that mirror the project's doc/, tmp/ and output layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultWorkbook       = "doc/table.xlsx"
	DefaultSheet          = "kk"
	DefaultHeaderRow      = 5
	DefaultSourceDir      = "tmp/audio"
	DefaultAudioExt       = ".mp3"
	DefaultOutputAudio    = "audio/kk.mp3"
	DefaultOutputWorkbook = "output/kk.xlsx"
	DefaultOutputText     = "content/kk.txt"
	DefaultGapPolicy      = "leading"
	DefaultBitrate        = "192k"
	DefaultSampleRate     = 44100
	DefaultChannels       = 2
	DefaultFFmpegPath     = "ffmpeg"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"

	DefaultLabelPhonetic = "音標"
	DefaultLabelClip     = "mp3"
	DefaultLabelStart    = "start"
	DefaultLabelEnd      = "end"

	// Environment variable names
	EnvConfigFile     = "CLIPMERGE_CONFIG"
	EnvBaseDir        = "CLIPMERGE_BASE_DIR"
	EnvWorkbook       = "CLIPMERGE_WORKBOOK"
	EnvSheet          = "CLIPMERGE_SHEET"
	EnvHeaderRow      = "CLIPMERGE_HEADER_ROW"
	EnvSourceDir      = "CLIPMERGE_SOURCE_DIR"
	EnvAudioExt       = "CLIPMERGE_AUDIO_EXT"
	EnvOutputAudio    = "CLIPMERGE_OUTPUT_AUDIO"
	EnvOutputWorkbook = "CLIPMERGE_OUTPUT_WORKBOOK"
	EnvOutputText     = "CLIPMERGE_OUTPUT_TEXT"
	EnvMergedName     = "CLIPMERGE_MERGED_NAME"
	EnvGapMs          = "CLIPMERGE_GAP_MS"
	EnvGapPolicy      = "CLIPMERGE_GAP_POLICY"
	EnvLeadInMs       = "CLIPMERGE_LEAD_IN_MS"
	EnvBitrate        = "CLIPMERGE_BITRATE"
	EnvSampleRate     = "CLIPMERGE_SAMPLE_RATE"
	EnvChannels       = "CLIPMERGE_CHANNELS"
	EnvFFmpegPath     = "CLIPMERGE_FFMPEG_PATH"
	EnvLabelPhonetic  = "CLIPMERGE_LABEL_PHONETIC"
	EnvLabelClip      = "CLIPMERGE_LABEL_CLIP"
	EnvLabelStart     = "CLIPMERGE_LABEL_START"
	EnvLabelEnd       = "CLIPMERGE_LABEL_END"
	EnvLogLevel       = "CLIPMERGE_LOG_LEVEL"
	EnvLogFormat      = "CLIPMERGE_LOG_FORMAT"
	EnvLogFile        = "CLIPMERGE_LOG_FILE"
	EnvLedgerPath     = "CLIPMERGE_LEDGER_PATH"
	EnvMetricsFile    = "CLIPMERGE_METRICS_FILE"
	EnvCueSheet       = "CLIPMERGE_CUE_SHEET"
	EnvProgress       = "CLIPMERGE_PROGRESS"
)

// Config defines the application configuration interface
type Config interface {
	Workbook() string
	Sheet() string
	HeaderRow() int
	SourceDir() string
	AudioExt() string
	OutputAudio() string
	OutputWorkbook() string
	OutputText() string
	MergedName() string
	Gap() time.Duration
	GapPolicy() string
	LeadIn() time.Duration
	Bitrate() string
	SampleRate() int
	Channels() int
	FFmpegPath() string
	Labels() Labels
	LogLevel() string
	LogFormat() string
	LogFile() string
	LedgerPath() string
	MetricsFile() string
	CueSheet() string
	Progress() bool
}

// Labels holds the header texts used to locate the required columns.
type Labels struct {
	Phonetic string `yaml:"phonetic"`
	Clip     string `yaml:"clip"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

// fileConfig mirrors the YAML layout. Pointer fields distinguish "unset" from
// zero values so that the file only overrides what it names.
type fileConfig struct {
	BaseDir        *string `yaml:"base_dir"`
	Workbook       *string `yaml:"workbook"`
	Sheet          *string `yaml:"sheet"`
	HeaderRow      *int    `yaml:"header_row"`
	SourceDir      *string `yaml:"source_dir"`
	AudioExt       *string `yaml:"audio_ext"`
	OutputAudio    *string `yaml:"output_audio"`
	OutputWorkbook *string `yaml:"output_workbook"`
	OutputText     *string `yaml:"output_text"`
	MergedName     *string `yaml:"merged_name"`
	GapMs          *int    `yaml:"gap_ms"`
	GapPolicy      *string `yaml:"gap_policy"`
	LeadInMs       *int    `yaml:"lead_in_ms"`
	Bitrate        *string `yaml:"bitrate"`
	SampleRate     *int    `yaml:"sample_rate"`
	Channels       *int    `yaml:"channels"`
	FFmpegPath     *string `yaml:"ffmpeg_path"`
	Labels         *Labels `yaml:"labels"`
	LogLevel       *string `yaml:"log_level"`
	LogFormat      *string `yaml:"log_format"`
	LogFile        *string `yaml:"log_file"`
	LedgerPath     *string `yaml:"ledger_path"`
	MetricsFile    *string `yaml:"metrics_file"`
	CueSheet       *string `yaml:"cue_sheet"`
	Progress       *bool   `yaml:"progress"`
}

// EnvConfig reads configuration from the environment and an optional YAML file
type EnvConfig struct {
	baseDir        string
	workbook       string
	sheet          string
	headerRow      int
	sourceDir      string
	audioExt       string
	outputAudio    string
	outputWorkbook string
	outputText     string
	mergedName     string
	gapMs          int
	gapPolicy      string
	leadInMs       int
	bitrate        string
	sampleRate     int
	channels       int
	ffmpegPath     string
	labels         Labels
	logLevel       string
	logFormat      string
	logFile        string
	ledgerPath     string
	metricsFile    string
	cueSheet       string
	progress       bool
}

// New creates a new EnvConfig with defaults, then applies the YAML file named by
// CLIPMERGE_CONFIG (if any) and finally environment variable overrides.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		workbook:       DefaultWorkbook,
		sheet:          DefaultSheet,
		headerRow:      DefaultHeaderRow,
		sourceDir:      DefaultSourceDir,
		audioExt:       DefaultAudioExt,
		outputAudio:    DefaultOutputAudio,
		outputWorkbook: DefaultOutputWorkbook,
		outputText:     DefaultOutputText,
		gapPolicy:      DefaultGapPolicy,
		bitrate:        DefaultBitrate,
		sampleRate:     DefaultSampleRate,
		channels:       DefaultChannels,
		ffmpegPath:     DefaultFFmpegPath,
		labels: Labels{
			Phonetic: DefaultLabelPhonetic,
			Clip:     DefaultLabelClip,
			Start:    DefaultLabelStart,
			End:      DefaultLabelEnd,
		},
		logLevel:  DefaultLogLevel,
		logFormat: DefaultLogFormat,
		progress:  true,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	setString(&c.baseDir, fc.BaseDir)
	setString(&c.workbook, fc.Workbook)
	setString(&c.sheet, fc.Sheet)
	setInt(&c.headerRow, fc.HeaderRow)
	setString(&c.sourceDir, fc.SourceDir)
	setString(&c.audioExt, fc.AudioExt)
	setString(&c.outputAudio, fc.OutputAudio)
	setString(&c.outputWorkbook, fc.OutputWorkbook)
	setString(&c.outputText, fc.OutputText)
	setString(&c.mergedName, fc.MergedName)
	setInt(&c.gapMs, fc.GapMs)
	setString(&c.gapPolicy, fc.GapPolicy)
	setInt(&c.leadInMs, fc.LeadInMs)
	setString(&c.bitrate, fc.Bitrate)
	setInt(&c.sampleRate, fc.SampleRate)
	setInt(&c.channels, fc.Channels)
	setString(&c.ffmpegPath, fc.FFmpegPath)
	if fc.Labels != nil {
		setString(&c.labels.Phonetic, &fc.Labels.Phonetic)
		setString(&c.labels.Clip, &fc.Labels.Clip)
		setString(&c.labels.Start, &fc.Labels.Start)
		setString(&c.labels.End, &fc.Labels.End)
	}
	setString(&c.logLevel, fc.LogLevel)
	setString(&c.logFormat, fc.LogFormat)
	setString(&c.logFile, fc.LogFile)
	setString(&c.ledgerPath, fc.LedgerPath)
	setString(&c.metricsFile, fc.MetricsFile)
	setString(&c.cueSheet, fc.CueSheet)
	if fc.Progress != nil {
		c.progress = *fc.Progress
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	envString(&c.baseDir, EnvBaseDir)
	envString(&c.workbook, EnvWorkbook)
	envString(&c.sheet, EnvSheet)
	envString(&c.sourceDir, EnvSourceDir)
	envString(&c.audioExt, EnvAudioExt)
	envString(&c.outputAudio, EnvOutputAudio)
	envString(&c.outputWorkbook, EnvOutputWorkbook)
	envString(&c.outputText, EnvOutputText)
	envString(&c.mergedName, EnvMergedName)
	envString(&c.gapPolicy, EnvGapPolicy)
	envString(&c.bitrate, EnvBitrate)
	envString(&c.ffmpegPath, EnvFFmpegPath)
	envString(&c.labels.Phonetic, EnvLabelPhonetic)
	envString(&c.labels.Clip, EnvLabelClip)
	envString(&c.labels.Start, EnvLabelStart)
	envString(&c.labels.End, EnvLabelEnd)
	envString(&c.logLevel, EnvLogLevel)
	envString(&c.logFormat, EnvLogFormat)
	envString(&c.logFile, EnvLogFile)
	envString(&c.ledgerPath, EnvLedgerPath)
	envString(&c.metricsFile, EnvMetricsFile)
	envString(&c.cueSheet, EnvCueSheet)

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvHeaderRow, &c.headerRow},
		{EnvGapMs, &c.gapMs},
		{EnvLeadInMs, &c.leadInMs},
		{EnvSampleRate, &c.sampleRate},
		{EnvChannels, &c.channels},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.name, err)
		}
		*e.dst = n
	}

	if p := os.Getenv(EnvProgress); p != "" {
		b, err := strconv.ParseBool(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvProgress, err)
		}
		c.progress = b
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.headerRow < 1 {
		return fmt.Errorf("invalid header row %d: must be >= 1", c.headerRow)
	}
	if c.gapMs < 0 {
		return fmt.Errorf("invalid gap %dms: must not be negative", c.gapMs)
	}
	if c.leadInMs < 0 {
		return fmt.Errorf("invalid lead-in %dms: must not be negative", c.leadInMs)
	}
	switch c.gapPolicy {
	case "leading", "between":
	default:
		return fmt.Errorf("invalid gap policy %q: must be leading or between", c.gapPolicy)
	}
	if c.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.sampleRate)
	}
	if c.channels != 1 && c.channels != 2 {
		return fmt.Errorf("invalid channel count %d: must be 1 or 2", c.channels)
	}
	if c.audioExt == "" {
		return fmt.Errorf("audio extension must not be empty")
	}
	if !strings.HasPrefix(c.audioExt, ".") {
		c.audioExt = "." + c.audioExt
	}
	if c.sheet == "" {
		return fmt.Errorf("sheet name must not be empty")
	}
	return nil
}

// Workbook returns the input workbook path
func (c *EnvConfig) Workbook() string {
	return c.resolve(c.workbook)
}

// Sheet returns the worksheet name to merge
func (c *EnvConfig) Sheet() string {
	return c.sheet
}

// HeaderRow returns the 1-based header row index
func (c *EnvConfig) HeaderRow() int {
	return c.headerRow
}

// SourceDir returns the directory searched for source clips
func (c *EnvConfig) SourceDir() string {
	return c.resolve(c.sourceDir)
}

func (c *EnvConfig) AudioExt() string {
	return c.audioExt
}

func (c *EnvConfig) OutputAudio() string {
	return c.resolve(c.outputAudio)
}

func (c *EnvConfig) OutputWorkbook() string {
	return c.resolve(c.outputWorkbook)
}

func (c *EnvConfig) OutputText() string {
	return c.resolve(c.outputText)
}

// MergedName returns the identifier written into the clip column of merged
// rows. Defaults to the base name of the output audio file.
func (c *EnvConfig) MergedName() string {
	if c.mergedName != "" {
		return c.mergedName
	}
	return filepath.Base(c.outputAudio)
}

func (c *EnvConfig) Gap() time.Duration {
	return time.Duration(c.gapMs) * time.Millisecond
}

func (c *EnvConfig) GapPolicy() string {
	return c.gapPolicy
}

func (c *EnvConfig) LeadIn() time.Duration {
	return time.Duration(c.leadInMs) * time.Millisecond
}

func (c *EnvConfig) Bitrate() string {
	return c.bitrate
}

func (c *EnvConfig) SampleRate() int {
	return c.sampleRate
}

func (c *EnvConfig) Channels() int {
	return c.channels
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) Labels() Labels {
	return c.labels
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns the log handler format (json or text)
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

func (c *EnvConfig) LogFile() string {
	return c.resolveOptional(c.logFile)
}

// LedgerPath returns the SQLite run ledger path, empty when disabled
func (c *EnvConfig) LedgerPath() string {
	return c.resolveOptional(c.ledgerPath)
}

func (c *EnvConfig) MetricsFile() string {
	return c.resolveOptional(c.metricsFile)
}

func (c *EnvConfig) CueSheet() string {
	return c.resolveOptional(c.cueSheet)
}

func (c *EnvConfig) Progress() bool {
	return c.progress
}

// resolve anchors a relative path at the configured base directory
func (c *EnvConfig) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

func (c *EnvConfig) resolveOptional(path string) string {
	if path == "" {
		return ""
	}
	return c.resolve(path)
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
