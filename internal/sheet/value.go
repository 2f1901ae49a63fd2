package sheet

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "empty"
	}
}

// Value is a single worksheet cell. The zero value is an empty cell.
type Value struct {
	kind Kind
	text string // text content, or the integer literal of a number read from a workbook
	num  float64
	b    bool
}

// Empty returns an empty cell value.
func Empty() Value { return Value{} }

// Text returns a string cell value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric cell value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean cell value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// numberLiteral builds a number read from a workbook. Integer literals are
// kept verbatim ("5" stays "5"); any other literal ("2.3450000000000002",
// "1E-3") is dropped so the value renders in shortest float form.
func numberLiteral(f float64, literal string) Value {
	if !isIntegerLiteral(literal) {
		return Number(f)
	}
	return Value{kind: KindNumber, num: f, text: literal}
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Float interprets the cell as a finite number. Numeric cells always
// qualify; text cells qualify when their trimmed content parses as a float.
// Empty and boolean cells never do.
func (v Value) Float() (float64, bool) {
	var f float64
	switch v.kind {
	case KindNumber:
		f = v.num
	case KindText:
		s := strings.TrimSpace(v.text)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String renders the cell the way it appears in the text export:
// empty cells as "", booleans as True/False and numbers in their
// shortest round-trip form.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		if v.text != "" {
			return v.text
		}
		return formatFloat(v.num)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same typed content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// formatFloat produces the shortest representation that round-trips,
// always carrying a fractional part (4 -> "4.0") and switching to
// exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
