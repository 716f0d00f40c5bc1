package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PeriodFormat selects how raw period tokens are read.
type PeriodFormat string

const (
	FormatMonthYear   PeriodFormat = "mm-yy"        // "03-25"
	FormatExcelSerial PeriodFormat = "excel-serial" // "45000"
	FormatDayMonth    PeriodFormat = "dd/mm/yyyy"   // "15/03/2025"
	FormatISO         PeriodFormat = "iso"          // "2025-03-15", "2025-03"
	FormatAuto        PeriodFormat = "auto"
)

// LabelStyle selects the display form of a period.
type LabelStyle int

const (
	ShortLabel LabelStyle = iota // "mar-25"
	LongLabel                    // "Marzo 2025"
)

// DefaultSerialCorrection is the day offset added to Excel serials.
const DefaultSerialCorrection = 1

// yearPivot splits two-digit years: 00..50 are 2000s, 51..99 are 1900s.
const yearPivot = 50

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidMonth  = errors.New("invalid month")
)

var (
	shortMonths = [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
	longMonths  = [12]string{"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio", "Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}

	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	reMonthYear = regexp.MustCompile(`^(\d{2})-(\d{2})$`)
	reDayMonth  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reSerial    = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Period is a reporting bucket: one calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodKey is the sortable integer form of a period, year*100 + month.
type PeriodKey int

// NewPeriod validates the month range.
func NewPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return Period{Year: year, Month: month}, nil
}

// Key returns the period key. Keys order exactly like the calendar.
func (p Period) Key() PeriodKey {
	return PeriodKey(p.Year*100 + int(p.Month))
}

// IsZero reports whether p is the zero value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Format renders the period in the given style.
func (p Period) Format(style LabelStyle) string {
	if p.Month < time.January || p.Month > time.December {
		return ""
	}
	idx := int(p.Month) - 1
	if style == LongLabel {
		return fmt.Sprintf("%s %d", longMonths[idx], p.Year)
	}
	yy := fmt.Sprintf("%02d", p.Year%100)
	return shortMonths[idx] + "-" + yy
}

// String implements fmt.Stringer with the short label.
func (p Period) String() string {
	return p.Format(ShortLabel)
}

// Token renders the period as an MM-YY token.
func (p Period) Token() string {
	return fmt.Sprintf("%02d-%02d", int(p.Month), p.Year%100)
}

// Period converts a key back into its period.
func (k PeriodKey) Period() Period {
	return Period{Year: int(k) / 100, Month: time.Month(int(k) % 100)}
}

// Valid reports whether the key encodes a month in 1..12.
func (k PeriodKey) Valid() bool {
	m := int(k) % 100
	return k > 0 && m >= 1 && m <= 12
}

// ExcelSerialToDate converts a spreadsheet day count to a UTC date.
// The result is epoch 1899-12-30 plus serial+correction days.
func ExcelSerialToDate(serial float64, correction int) time.Time {
	days := int(serial) + correction
	return excelEpoch.AddDate(0, 0, days)
}

// PeriodParser reads period tokens in a configured format.
type PeriodParser struct {
	Format           PeriodFormat
	SerialCorrection int
}

// DefaultPeriodParser reads MM-YY tokens.
func DefaultPeriodParser() PeriodParser {
	return PeriodParser{Format: FormatMonthYear, SerialCorrection: DefaultSerialCorrection}
}

// ParsePeriodFormat validates a format name.
func ParsePeriodFormat(s string) (PeriodFormat, error) {
	switch f := PeriodFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMonthYear, FormatExcelSerial, FormatDayMonth, FormatISO, FormatAuto:
		return f, nil
	}
	return "", fmt.Errorf("unknown period format %q", s)
}

// Parse reads a token. Empty input, an unrecognized pattern or a month
// outside 1..12 yield ErrInvalidPeriod.
func (pp PeriodParser) Parse(token string) (Period, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Period{}, fmt.Errorf("%w: empty token", ErrInvalidPeriod)
	}
	switch pp.Format {
	case FormatMonthYear, "":
		return parseMonthYear(token)
	case FormatExcelSerial:
		return parseSerial(token, pp.SerialCorrection)
	case FormatDayMonth:
		return parseDayMonth(token)
	case FormatISO:
		return parseISO(token)
	case FormatAuto:
		for _, fn := range []func(string) (Period, error){
			parseMonthYear,
			parseDayMonth,
			parseISO,
			func(s string) (Period, error) { return parseSerial(s, pp.SerialCorrection) },
		} {
			if p, err := fn(token); err == nil {
				return p, nil
			}
		}
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, token)
	}
	return Period{}, fmt.Errorf("%w: unknown format %q", ErrInvalidPeriod, pp.Format)
}

func parseMonthYear(token string) (Period, error) {
	m := reMonthYear.FindStringSubmatch(token)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q is not MM-YY", ErrInvalidPeriod, token)
	}
	month, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	year := 1900 + yy
	if yy <= yearPivot {
		year = 2000 + yy
	}
	return periodOf(year, month, token)
}

func parseDayMonth(token string) (Period, error) {
	m := reDayMonth.FindStringSubmatch(token)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q is not DD/MM/YYYY", ErrInvalidPeriod, token)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 {
		return Period{}, fmt.Errorf("%w: day %d in %q", ErrInvalidPeriod, day, token)
	}
	return periodOf(year, month, token)
}

func parseISO(token string) (Period, error) {
	for _, layout := range []string{time.DateOnly, "2006-01", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, token); err == nil {
			return Period{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Period{}, fmt.Errorf("%w: %q is not an ISO date", ErrInvalidPeriod, token)
}

func parseSerial(token string, correction int) (Period, error) {
	if !reSerial.MatchString(token) {
		return Period{}, fmt.Errorf("%w: %q is not a serial", ErrInvalidPeriod, token)
	}
	serial, err := strconv.ParseFloat(token, 64)
	if err != nil || serial < 1 {
		return Period{}, fmt.Errorf("%w: %q is not a serial", ErrInvalidPeriod, token)
	}
	t := ExcelSerialToDate(serial, correction)
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func periodOf(year, month int, token string) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d in %q", ErrInvalidPeriod, month, token)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}
