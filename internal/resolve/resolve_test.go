package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"a01.mp3"}, Candidates("a01", ".mp3"))
	assert.Equal(t, []string{"a01.MP3"}, Candidates("a01.MP3", ".mp3"))
	assert.Equal(t, []string{"a01.wav.mp3"}, Candidates("a01.wav", ".mp3"))
}

func TestSourceDir(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, filepath.Join(dir, "a01.mp3"))
	touch(t, filepath.Join(dir, "sub", "b02.mp3"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c03.mp3"), 0o755))

	s := SourceDir{Dir: dir, Ext: ".mp3"}

	got, ok := s.Resolve("a01")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = s.Resolve("b02")
	assert.False(t, ok, "nested files are left to the recursive scan")

	_, ok = s.Resolve("c03")
	assert.False(t, ok, "directories are not audio files")
}

func TestLiteralPath(t *testing.T) {
	dir := t.TempDir()
	abs := touch(t, filepath.Join(dir, "clips", "x.mp3"))

	s := LiteralPath{Ext: ".mp3"}

	got, ok := s.Resolve(abs)
	require.True(t, ok)
	assert.Equal(t, abs, got)

	got, ok = s.Resolve(filepath.Join(dir, "clips", "x"))
	require.True(t, ok)
	assert.Equal(t, abs, got)

	_, ok = s.Resolve(filepath.Join(dir, "clips", "y"))
	assert.False(t, ok)
}

func TestLiteralPath_Home(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	want := touch(t, filepath.Join(home, "audio", "h.mp3"))

	got, ok := LiteralPath{Ext: ".mp3"}.Resolve("~/audio/h")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRecursiveScan(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, filepath.Join(dir, "a", "Word.MP3"))
	touch(t, filepath.Join(dir, "b", "word.mp3"))
	touch(t, filepath.Join(dir, "b", "other.wav"))
	composed := touch(t, filepath.Join(dir, "c", "caf\u00e9.mp3"))

	s := NewRecursiveScan(dir, ".mp3", nil)

	got, ok := s.Resolve("WORD")
	require.True(t, ok)
	assert.Equal(t, first, got, "first match in lexical order wins")

	got, ok = s.Resolve("cafe\u0301")
	require.True(t, ok, "decomposed reference matches composed file name")
	assert.Equal(t, composed, got)

	_, ok = s.Resolve("other")
	assert.False(t, ok, "files without the audio extension are ignored")
}

func TestRecursiveScan_MissingDir(t *testing.T) {
	s := NewRecursiveScan(filepath.Join(t.TempDir(), "nope"), ".mp3", nil)
	_, ok := s.Resolve("a")
	assert.False(t, ok)
}

func TestChain_Order(t *testing.T) {
	dir := t.TempDir()
	direct := touch(t, filepath.Join(dir, "a01.mp3"))
	touch(t, filepath.Join(dir, "deep", "a01.mp3"))
	nested := touch(t, filepath.Join(dir, "deep", "z99.mp3"))

	chain := Default(dir, ".mp3", nil)

	m, ok := chain.Resolve(" a01 ")
	require.True(t, ok)
	assert.Equal(t, Match{Path: direct, Strategy: StrategySourceDir}, m)

	m, ok = chain.Resolve("z99")
	require.True(t, ok)
	assert.Equal(t, Match{Path: nested, Strategy: StrategyRecursiveScan}, m)

	_, ok = chain.Resolve("")
	assert.False(t, ok)

	_, ok = chain.Resolve("missing")
	assert.False(t, ok)
}
