package domain

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Rome must resolve in minimal containers
)

// DefaultLocalZone is the zone used for the local acquisition timestamp.
const DefaultLocalZone = "Europe/Rome"

// acquisitionLayout is the strict layout of "acq_date acq_time" after padding.
const acquisitionLayout = "2006-01-02 1504"

// RequiredColumns lists the CSV columns a FIRMS document must carry.
var RequiredColumns = []string{
	"acq_date", "acq_time", "latitude", "longitude", "bright_ti4",
	"frp", "scan", "track", "satellite", "confidence",
}

var (
	errNotNumeric = errors.New("not a finite number")
	errDateFormat = errors.New("want YYYY-MM-DD")
	errTimeFormat = errors.New("want HHMM")
)

// ParseResult holds the normalized records and the rows that were dropped.
type ParseResult struct {
	Records  []HotspotRecord
	Rejected []RowError
}

// ParseCSV reads a FIRMS CSV document. An empty document yields an empty
// result; a document without the required columns yields a *SchemaError.
// A nil loc falls back to DefaultLocalZone.
func ParseCSV(r io.Reader, loc *time.Location) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read firms csv: %w", err)
	}
	if len(rows) == 0 {
		return ParseResult{}, nil
	}
	return NormalizeRows(rows[0], rows[1:], loc)
}

// NormalizeRows converts header-keyed CSV rows into hotspot records.
func NormalizeRows(header []string, rows [][]string, loc *time.Location) (ParseResult, error) {
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(DefaultLocalZone); err != nil {
			return ParseResult{}, fmt.Errorf("load %s: %w", DefaultLocalZone, err)
		}
	}

	cols := indexColumns(header)
	if missing := cols.missing(RequiredColumns); len(missing) > 0 {
		return ParseResult{}, &SchemaError{Missing: missing}
	}

	res := ParseResult{Records: make([]HotspotRecord, 0, len(rows))}
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rec, rowErr := normalizeRow(cols, row, i+2, loc)
		if rowErr != nil {
			res.Rejected = append(res.Rejected, *rowErr)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func normalizeRow(cols columns, row []string, line int, loc *time.Location) (HotspotRecord, *RowError) {
	date := cols.value(row, "acq_date")
	hhmm := cols.value(row, "acq_time")

	acquired, padded, err := parseAcquisition(date, hhmm)
	if err != nil {
		field, value := "acq_time", hhmm
		if errors.Is(err, errDateFormat) {
			field, value = "acq_date", date
		}
		return HotspotRecord{}, &RowError{Line: line, Field: field, Value: value, Err: err}
	}

	lat, err := parseRequiredFloat(cols.value(row, "latitude"))
	if err != nil || lat < -90 || lat > 90 {
		return HotspotRecord{}, &RowError{Line: line, Field: "latitude", Value: cols.value(row, "latitude"), Err: errNotNumeric}
	}
	lon, err := parseRequiredFloat(cols.value(row, "longitude"))
	if err != nil || lon < -180 || lon > 180 {
		return HotspotRecord{}, &RowError{Line: line, Field: "longitude", Value: cols.value(row, "longitude"), Err: errNotNumeric}
	}

	satellite := cols.value(row, "satellite")
	return HotspotRecord{
		ID:              generateID(satellite, lat, lon, date, padded),
		Latitude:        lat,
		Longitude:       lon,
		BrightnessTI4:   parseOptionalFloat(cols.value(row, "bright_ti4")),
		FRP:             parseOptionalFloat(cols.value(row, "frp")),
		Scan:            parseOptionalFloat(cols.value(row, "scan")),
		Track:           parseOptionalFloat(cols.value(row, "track")),
		Satellite:       satellite,
		Confidence:      cols.value(row, "confidence"),
		Instrument:      cols.value(row, "instrument"),
		Version:         cols.value(row, "version"),
		DayNight:        cols.value(row, "daynight"),
		AcquiredAtUTC:   acquired,
		AcquiredAtLocal: acquired.In(loc),
	}, nil
}

// parseAcquisition combines acq_date with a zero-padded acq_time into a UTC
// timestamp, e.g. ("2024-07-01", "930") -> 2024-07-01T09:30:00Z.
// It also returns the padded time string.
func parseAcquisition(date, hhmm string) (time.Time, string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return time.Time{}, "", errDateFormat
	}
	if hhmm == "" || len(hhmm) > 4 {
		return time.Time{}, "", errTimeFormat
	}
	for _, r := range hhmm {
		if r < '0' || r > '9' {
			return time.Time{}, "", errTimeFormat
		}
	}
	padded := strings.Repeat("0", 4-len(hhmm)) + hhmm

	t, err := time.ParseInLocation(acquisitionLayout, date+" "+padded, time.UTC)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", errTimeFormat, err)
	}
	return t, padded, nil
}

func parseRequiredFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotNumeric
	}
	return v, nil
}

// parseOptionalFloat returns nil for empty, non-numeric or non-finite input.
func parseOptionalFloat(s string) *float64 {
	v, err := parseRequiredFloat(s)
	if err != nil {
		return nil
	}
	return &v
}

// generateID produces a deterministic ID from the detection's key fields so
// the same detection keeps its ID across fetches.
func generateID(satellite string, lat, lon float64, date, hhmm string) string {
	input := fmt.Sprintf("%s|%.5f|%.5f|%s|%s", satellite, lat, lon, date, hhmm)
	hash := sha256.Sum256([]byte(input))
	return "hs-" + hex.EncodeToString(hash[:8])
}

// columns maps a header name to its position.
type columns map[string]int

func indexColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func (c columns) missing(required []string) []string {
	var out []string
	for _, name := range required {
		if _, ok := c[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (c columns) value(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
