package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Excel serial dates are only trusted inside this window (1982..2064) so that
// small integers are never read as dates.
const (
	excelSerialMin = 30000
	excelSerialMax = 60000
)

var (
	excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

	monthYearRe = regexp.MustCompile(`^(\d{1,2})\.(\d{4})$`)
	dayFirstRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	yearOnlyRe  = regexp.MustCompile(`^\d{4}$`)

	isoLayouts = []string{"2006-01-02", "2006/01/02", "2006-1-2"}
)

// ParseDate accepts Excel serials, MM.YYYY, DD/MM/YYYY and ISO dates, with or
// without a time suffix. The result is a UTC calendar day.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}

	if yearOnlyRe.MatchString(s) {
		year, _ := strconv.Atoi(s)
		if year >= 1900 && year <= 2100 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n > excelSerialMin && n < excelSerialMax {
			return excelEpoch.AddDate(0, 0, int(math.Floor(n))), true
		}
		return time.Time{}, false
	}

	datePart := s
	if i := strings.IndexAny(datePart, "T "); i > 0 {
		datePart = datePart[:i]
	}

	if m := dayFirstRe.FindStringSubmatch(datePart); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, datePart); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseQuantity reads a number in either dot-decimal or Latin format. A comma
// marks the Latin format: dots are thousands separators and the comma is the
// decimal mark.
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
