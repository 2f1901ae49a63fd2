package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/heimdex/clipmerge/internal/sheet"
)

// A lone "\r" is left in place.
var cellReplacer = strings.NewReplacer("\r\n", " ", "\t", " ", "\n", " ")

// WriteTSV writes every row of the table, padded to the table width, as one
// tab-separated line terminated by "\n".
func WriteTSV(w io.Writer, t *sheet.Table) error {
	bw := bufio.NewWriter(w)
	fields := make([]string, t.Width())
	for r := 1; r <= t.Len(); r++ {
		for c, v := range t.Row(r) {
			fields[c] = cellText(v)
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t")); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTSVFile writes the table to path as UTF-8 TSV.
func WriteTSVFile(path string, t *sheet.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create text export: %w", err)
	}
	if err := WriteTSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write text export: %w", err)
	}
	return f.Close()
}

func cellText(v sheet.Value) string {
	return cellReplacer.Replace(v.String())
}
