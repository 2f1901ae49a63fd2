// Package sheet loads one worksheet of an xlsx workbook into an immutable
// Table and writes changed cells back into a copy of that workbook.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrWorkbookNotFound = errors.New("workbook not found")
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrHeaderOutOfRange = errors.New("header row beyond sheet")
)

// Load reads the named worksheet with raw (unformatted) cell values.
// headerRow must lie within the sheet.
func Load(path, sheetName string, headerRow int) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorkbookNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if !slices.Contains(f.GetSheetList(), sheetName) {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheetName, path)
	}

	raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	// extent follows the cells present; <dimension> may be stale
	rows := make([][]Value, len(raw))
	for r, cells := range raw {
		row := make([]Value, len(cells))
		for c, text := range cells {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheetName, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
			}
			row[c] = typedValue(typ, text)
		}
		rows[r] = row
	}

	t := NewTable(sheetName, rows, 0)
	if headerRow < 1 || headerRow > t.Len() {
		return nil, fmt.Errorf("%w: row %d requested, sheet %q has %d rows",
			ErrHeaderOutOfRange, headerRow, sheetName, t.Len())
	}
	return t, nil
}

// Save re-opens the workbook at src, writes every cell where updated differs
// from original, and saves the result to dst. Other sheets, styles and cells
// are carried over untouched.
func Save(src, dst string, original, updated *Table) error {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := updated.Name()
	for _, e := range Diff(original, updated) {
		cell, err := excelize.CoordinatesToCellName(e.Col, e.Row)
		if err != nil {
			return err
		}
		if err := setCell(f, sheetName, cell, e.Value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}

	if err := f.SaveAs(dst); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheetName, cell string, v Value) error {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Float()
		return f.SetCellFloat(sheetName, cell, n, -1, 64)
	case KindText:
		return f.SetCellStr(sheetName, cell, v.String())
	case KindBool:
		return f.SetCellBool(sheetName, cell, v.b)
	default:
		return f.SetCellValue(sheetName, cell, nil)
	}
}

func typedValue(typ excelize.CellType, text string) Value {
	switch typ {
	case excelize.CellTypeBool:
		return Bool(text == "1" || strings.EqualFold(text, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return Text(text)
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate, excelize.CellTypeFormula:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return numberLiteral(f, text)
		}
	}
	return Text(text)
}
