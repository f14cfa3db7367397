package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/flushfinder/flushfinder/internal/facilities"
	"github.com/flushfinder/flushfinder/internal/geocode"
)

// Record is one line of the text report.
type Record struct {
	Index        int
	Description  string
	StreetNumber string
	StreetName   string
	City         string
	State        string
	Postal       string
	Lat          float64
	Lng          float64
	BRN          string
	Restrooms    int
}

// NewRecord builds the report record for the building at index.
func NewRecord(index int, b facilities.Building, loc geocode.Location, restrooms int) Record {
	return Record{
		Index:        index,
		Description:  b.LongDescription,
		StreetNumber: b.StreetNumber,
		StreetName:   b.StreetName,
		City:         b.City,
		State:        b.State,
		Postal:       b.Postal,
		Lat:          loc.Lat,
		Lng:          loc.Lng,
		BRN:          b.RecordNumber,
		Restrooms:    restrooms,
	}
}

// String renders r as a parenthesised tuple literal without a trailing newline.
func (r Record) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(strconv.Itoa(r.Index))
	for _, s := range []string{r.Description, r.StreetNumber, r.StreetName, r.City, r.State, r.Postal} {
		sb.WriteString(", ")
		sb.WriteString(quote(s))
	}
	sb.WriteString(", ")
	sb.WriteString(formatFloat(r.Lat))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(r.Lng))
	sb.WriteString(", ")
	sb.WriteString(quote(r.BRN))
	sb.WriteString(", ")
	sb.WriteString(strconv.Itoa(r.Restrooms))
	sb.WriteByte(')')
	return sb.String()
}

// quote renders s as a string literal. Single quotes are used unless s
// contains a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(q):
			sb.WriteByte('\\')
			sb.WriteByte(q)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			sb.WriteString(`\x`)
			sb.WriteString(strconv.FormatInt(int64(r)+0x100, 16)[1:])
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

// formatFloat renders f in shortest round-trip form, always with a decimal
// point or exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
