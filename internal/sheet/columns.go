package sheet

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Labels are the header texts that identify the required columns.
type Labels struct {
	Phonetic string // matched exactly after trimming
	Clip     string // matched case-insensitively
	Start    string
	End      string
}

// DefaultLabels matches the vocabulary workbook layout.
var DefaultLabels = Labels{
	Phonetic: "音標",
	Clip:     "mp3",
	Start:    "start",
	End:      "end",
}

// Columns holds 1-based column indexes of the required fields.
type Columns struct {
	Phonetic int
	Clip     int
	Start    int
	End      int
}

// MissingColumnsError names every required label absent from the header row.
type MissingColumnsError struct {
	Labels    []string
	HeaderRow int
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns %s in header row %d",
		strings.Join(e.Labels, ", "), e.HeaderRow)
}

// FindColumns locates the required columns in headerRow. Only text cells are
// considered and the leftmost match wins.
func FindColumns(t *Table, headerRow int, labels Labels) (Columns, error) {
	fold := cases.Fold()
	find := func(label string, exact bool) int {
		target := strings.TrimSpace(label)
		folded := fold.String(target)
		for c := 1; c <= t.Width(); c++ {
			v := t.Cell(headerRow, c)
			if v.Kind() != KindText {
				continue
			}
			got := strings.TrimSpace(v.String())
			if exact && got == target {
				return c
			}
			if !exact && fold.String(got) == folded {
				return c
			}
		}
		return 0
	}

	cols := Columns{
		Phonetic: find(labels.Phonetic, true),
		Clip:     find(labels.Clip, false),
		Start:    find(labels.Start, false),
		End:      find(labels.End, false),
	}

	var missing []string
	for _, m := range []struct {
		label string
		idx   int
	}{
		{labels.Phonetic, cols.Phonetic},
		{labels.Clip, cols.Clip},
		{labels.Start, cols.Start},
		{labels.End, cols.End},
	} {
		if m.idx == 0 {
			missing = append(missing, m.label)
		}
	}
	if len(missing) > 0 {
		return Columns{}, &MissingColumnsError{Labels: missing, HeaderRow: headerRow}
	}
	return cols, nil
}
