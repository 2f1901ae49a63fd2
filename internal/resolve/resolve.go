// Package resolve maps clip references from the workbook onto audio files.
// Resolution is an ordered list of strategies; the first match wins.
package resolve

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Strategy names, as reported in logs and metrics
const (
	StrategySourceDir     = "source-dir"
	StrategyLiteralPath   = "literal-path"
	StrategyRecursiveScan = "recursive-scan"
)

// Strategy resolves one clip reference to an existing file.
type Strategy interface {
	Name() string
	Resolve(ref string) (string, bool)
}

// Match is a successful resolution.
type Match struct {
	Path     string
	Strategy string
}

// Chain tries its strategies in order.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain from the given strategies.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Default builds the standard chain: source directory, literal path, then a
// recursive scan of the source directory.
func Default(sourceDir, ext string, logger *slog.Logger) *Chain {
	return NewChain(
		SourceDir{Dir: sourceDir, Ext: ext},
		LiteralPath{Ext: ext},
		NewRecursiveScan(sourceDir, ext, logger),
	)
}

// Resolve returns the first strategy match for ref. Blank references never
// resolve.
func (c *Chain) Resolve(ref string) (Match, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Match{}, false
	}
	for _, s := range c.strategies {
		if path, ok := s.Resolve(ref); ok {
			return Match{Path: path, Strategy: s.Name()}, true
		}
	}
	return Match{}, false
}

// Candidates returns the file names tried for ref: ref itself when it already
// carries ext (compared case-insensitively), otherwise ref+ext.
func Candidates(ref, ext string) []string {
	if strings.HasSuffix(strings.ToLower(ref), strings.ToLower(ext)) {
		return []string{ref}
	}
	return []string{ref + ext}
}

// SourceDir looks for the candidate directly under Dir.
type SourceDir struct {
	Dir string
	Ext string
}

func (SourceDir) Name() string { return StrategySourceDir }

func (s SourceDir) Resolve(ref string) (string, bool) {
	if s.Dir == "" {
		return "", false
	}
	for _, name := range Candidates(ref, s.Ext) {
		if p := filepath.Join(s.Dir, name); isFile(p) {
			return absolute(p), true
		}
	}
	return "", false
}

// LiteralPath treats the reference, then its candidates, as a path relative to
// the working directory, absolute, or "~/"-prefixed.
type LiteralPath struct {
	Ext string
}

func (LiteralPath) Name() string { return StrategyLiteralPath }

func (s LiteralPath) Resolve(ref string) (string, bool) {
	for _, name := range append([]string{ref}, Candidates(ref, s.Ext)...) {
		if p := expandHome(name); isFile(p) {
			return absolute(p), true
		}
	}
	return "", false
}

// RecursiveScan walks Dir for files with the audio extension and matches by
// file name or stem, ignoring case and Unicode normalization form. The walk
// happens once, on first use.
type RecursiveScan struct {
	dir    string
	ext    string
	logger *slog.Logger

	once  sync.Once
	files []string
}

// NewRecursiveScan creates a lazily indexed scan of dir.
func NewRecursiveScan(dir, ext string, logger *slog.Logger) *RecursiveScan {
	return &RecursiveScan{dir: dir, ext: ext, logger: logger}
}

func (*RecursiveScan) Name() string { return StrategyRecursiveScan }

func (s *RecursiveScan) Resolve(ref string) (string, bool) {
	s.once.Do(s.index)
	if len(s.files) == 0 {
		return "", false
	}

	candidate := filepath.Base(Candidates(ref, s.ext)[0])
	wantName := fold(candidate)
	wantStem := fold(strings.TrimSuffix(candidate, filepath.Ext(candidate)))

	for _, p := range s.files {
		name := filepath.Base(p)
		if fold(name) == wantName || fold(strings.TrimSuffix(name, filepath.Ext(name))) == wantStem {
			return absolute(p), true
		}
	}
	return "", false
}

// index collects matching files in lexical walk order.
func (s *RecursiveScan) index() {
	if s.dir == "" || !isDir(s.dir) {
		return
	}
	ext := fold(s.ext)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(fold(d.Name()), ext) {
			s.files = append(s.files, path)
		}
		return nil
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("source directory scan failed", "dir", s.dir, "error", err)
	}
	if s.logger != nil {
		s.logger.Debug("indexed source directory", "dir", s.dir, "files", len(s.files))
	}
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
