package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/clipmerge/internal/sheet"
)

func sampleTable() *sheet.Table {
	return sheet.NewTable("kk", [][]sheet.Value{
		{sheet.Text("Vocabulary")},
		{},
		{sheet.Text("word"), sheet.Text("音標"), sheet.Text("mp3"), sheet.Text("start"), sheet.Text("end")},
		{sheet.Text("two\nlines"), sheet.Text("a\tb"), sheet.Text("kk.mp3"), sheet.Number(4), sheet.Number(6.25)},
		{sheet.Text("crlf\r\nend\rx"), sheet.Empty(), sheet.Empty(), sheet.Bool(true)},
	}, 0)
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, sampleTable()))

	want := "Vocabulary\t\t\t\t\n" +
		"\t\t\t\t\n" +
		"word\t音標\tmp3\tstart\tend\n" +
		"two lines\ta b\tkk.mp3\t4.0\t6.25\n" +
		"crlf end\rx\t\t\tTrue\t\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTSV_LineAndTabCounts(t *testing.T) {
	tbl := sampleTable()
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, tbl))

	out := buf.String()
	require.True(t, strings.HasSuffix(out, "\n"))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, tbl.Len())
	for i, line := range lines {
		assert.Equal(t, tbl.Width()-1, strings.Count(line, "\t"), "line %d", i+1)
	}
}

func TestWriteTSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kk.txt")
	require.NoError(t, WriteTSVFile(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "\n"))

	err = WriteTSVFile(filepath.Join(t.TempDir(), "missing", "kk.txt"), sampleTable())
	assert.Error(t, err)
}
