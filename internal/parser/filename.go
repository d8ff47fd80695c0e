package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"realm-tracker/internal/domain"
)

const ExpectedFilenamePattern = "<kingdomId>_<YYYYMMDD>_<HHMM>utc.<xlsx|xls>"

var filenamePattern = regexp.MustCompile(`(?i)^(\d+)_(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})utc\.(xlsx|xls)$`)

// ParseFilename extracts the kingdom and UTC export time from an export filename,
// e.g. 671_20250810_2040utc.xlsx. It also returns the lower-cased extension.
func ParseFilename(filename string) (domain.FileInfo, string, error) {
	base := filepath.Base(filename)
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return domain.FileInfo{}, "", domain.NewValidationError("filename %q does not match expected pattern %s", base, ExpectedFilenamePattern)
	}

	parts := make([]int, 5)
	for i := range parts {
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return domain.FileInfo{}, "", domain.NewValidationError("filename %q does not match expected pattern %s", base, ExpectedFilenamePattern)
		}
		parts[i] = n
	}
	year, month, day, hour, minute := parts[0], parts[1], parts[2], parts[3], parts[4]

	ts := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject instead of silently shifting.
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day || ts.Hour() != hour || ts.Minute() != minute {
		return domain.FileInfo{}, "", domain.NewValidationError("filename %q contains an invalid date or time, expected pattern %s", base, ExpectedFilenamePattern)
	}

	return domain.FileInfo{
		KingdomID: m[1],
		Timestamp: ts,
		Filename:  base,
	}, strings.ToLower(m[7]), nil
}
