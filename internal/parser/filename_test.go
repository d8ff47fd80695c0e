package parser_test

import (
	"strings"
	"testing"
	"time"

	"realm-tracker/internal/domain"
	"realm-tracker/internal/parser"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		kingdom  string
		ts       time.Time
		ext      string
	}{
		{"671_20250810_2040utc.xlsx", "671", time.Date(2025, 8, 10, 20, 40, 0, 0, time.UTC), "xlsx"},
		{"1_20240229_0000utc.xls", "1", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "xls"},
		{"671_20250101_0000UTC.XLSX", "671", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "xlsx"},
		{"/tmp/inbox/42_20251231_2359utc.xlsx", "42", time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), "xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			info, ext, err := parser.ParseFilename(tt.filename)
			if err != nil {
				t.Fatalf("ParseFilename() error = %v", err)
			}
			if info.KingdomID != tt.kingdom {
				t.Errorf("kingdom = %q, want %q", info.KingdomID, tt.kingdom)
			}
			if !info.Timestamp.Equal(tt.ts) || info.Timestamp.Location() != time.UTC {
				t.Errorf("timestamp = %v, want %v", info.Timestamp, tt.ts)
			}
			if ext != tt.ext {
				t.Errorf("ext = %q, want %q", ext, tt.ext)
			}
			if strings.Contains(info.Filename, "/") {
				t.Errorf("filename should be the base name, got %q", info.Filename)
			}
		})
	}
}

func TestParseFilenameRoundTrip(t *testing.T) {
	for _, kingdom := range []string{"1", "671", "100234"} {
		for _, ts := range []time.Time{
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 8, 10, 20, 40, 0, 0, time.UTC),
			time.Date(2030, 12, 31, 23, 59, 0, 0, time.UTC),
		} {
			name := kingdom + "_" + ts.Format("20060102_1504") + "utc.xlsx"
			info, _, err := parser.ParseFilename(name)
			if err != nil {
				t.Fatalf("ParseFilename(%q) error = %v", name, err)
			}
			if info.KingdomID != kingdom || !info.Timestamp.Equal(ts) {
				t.Errorf("ParseFilename(%q) = %s at %v", name, info.KingdomID, info.Timestamp)
			}
		}
	}
}

func TestParseFilenameRejects(t *testing.T) {
	for _, name := range []string{
		"roster.xlsx",
		"671_20250810_2040.xlsx",
		"671_20250810_2040utc.csv",
		"abc_20250810_2040utc.xlsx",
		"671_2025081_2040utc.xlsx",
		"671_20251301_0000utc.xlsx",
		"671_20250230_0000utc.xlsx",
		"671_20250810_2460utc.xlsx",
		"671_20250810_2400utc.xlsx",
		"",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parser.ParseFilename(name)
			if !domain.IsValidation(err) {
				t.Fatalf("ParseFilename(%q) error = %v, want ValidationError", name, err)
			}
			if !strings.Contains(err.Error(), parser.ExpectedFilenamePattern) {
				t.Errorf("error %q should cite the expected pattern", err)
			}
		})
	}
}
