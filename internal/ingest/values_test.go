package ingest

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		in     string
		want   time.Time
		wantOK bool
	}{
		{"excel serial", "45292", day(2024, time.January, 1), true},
		{"excel serial with fraction", "45292.75", day(2024, time.January, 1), true},
		{"small integer is not a serial", "150", time.Time{}, false},
		{"serial above window", "60001", time.Time{}, false},
		{"month dot year", "03.2024", day(2024, time.March, 1), true},
		{"single digit month", "3.2024", day(2024, time.March, 1), true},
		{"day first", "15/02/2024", day(2024, time.February, 15), true},
		{"day first invalid day", "31/02/2024", time.Time{}, false},
		{"iso", "2024-02-15", day(2024, time.February, 15), true},
		{"iso with T time", "2024-02-15T10:30:00", day(2024, time.February, 15), true},
		{"iso with space time", "2024-02-15 00:00:00", day(2024, time.February, 15), true},
		{"year only", "2024", day(2024, time.January, 1), true},
		{"garbage", "mañana", time.Time{}, false},
		{"empty", "  ", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1.234,56", 1234.56, true},
		{"1234.56", 1234.56, true},
		{"1234,56", 1234.56, true},
		{"-0,5", -0.5, true},
		{" 42 ", 42, true},
		{"1.234.567,8", 1234567.8, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseQuantity(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseQuantity(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseQuantity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLatinAndDotFormatsConverge(t *testing.T) {
	a, _ := ParseQuantity("1.234,56")
	b, _ := ParseQuantity("1234.56")
	if a != b {
		t.Errorf("formats diverge: %v != %v", a, b)
	}
}
