package source

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/xuri/excelize/v2"
)

// TimestampLayout is used when date/time values are rendered as text.
const TimestampLayout = "2006-01-02 15:04:05"

// maxExactFloatInt is the largest integer a float64 holds exactly.
const maxExactFloatInt = 1 << 53

// isoDateLayouts are tried in order for cells stored as ISO 8601 dates.
// Values without a zone are read as UTC.
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// cellValue converts a raw cell string into a typed value using the cell's
// stored type and number format.
func (w *Workbook) cellValue(sheet string, col, row int, raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := w.file.GetCellType(sheet, axis)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return t, nil
		}
		return raw, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeFormula:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		if w.isDateCell(sheet, axis) {
			if t, err := excelize.ExcelDateToTime(f, w.date1904); err == nil {
				return t, nil
			}
		}
		if f == math.Trunc(f) && math.Abs(f) < maxExactFloatInt {
			return int64(f), nil
		}
		return f, nil
	default:
		return raw, nil
	}
}

func parseISODate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isDateCell reports whether the cell's style applies a date or time number format.
func (w *Workbook) isDateCell(sheet, axis string) bool {
	styleID, err := w.file.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := w.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := w.file.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	w.dateStyles[styleID] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in number format id is a date or time format.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36: // CJK date formats
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code renders a date or time.
// Quoted literals, escapes and bracketed sections ([Red], [$-409]) are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case inBracket:
			if ch == ']' {
				inBracket = false
			}
		case ch == '"':
			inQuote = true
		case ch == '[':
			// Elapsed time sections such as [h] or [mm] are times.
			if end := strings.IndexByte(code[i:], ']'); end > 0 {
				inner := strings.ToLower(code[i+1 : i+end])
				if inner != "" && strings.Trim(inner, "hms") == "" {
					return true
				}
			}
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

// normalize coerces a non-nil value to the representation of its column kind.
func normalize(v any, kind core.ColumnKind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case core.KindFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case core.KindText:
		return formatText(v)
	}
	return v
}

func formatText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(TimestampLayout)
	default:
		return ""
	}
}
