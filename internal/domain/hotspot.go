package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day window accepted by the FIRMS area API.
const (
	MinDays = 1
	MaxDays = 10
)

// BBox is a WGS-84 bounding box in degrees.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// Validate reports whether the box lies within WGS-84 bounds and is non-empty.
func (b BBox) Validate() error {
	switch {
	case b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90:
		return fmt.Errorf("bbox %s: outside WGS-84 bounds", b)
	case b.West >= b.East || b.South >= b.North:
		return fmt.Errorf("bbox %s: empty area", b)
	}
	return nil
}

// String renders the box the way the FIRMS path expects it.
func (b BBox) String() string {
	return strings.Join([]string{
		formatCoord(b.West), formatCoord(b.South), formatCoord(b.East), formatCoord(b.North),
	}, ",")
}

// Center returns the midpoint of the box.
func (b BBox) Center() Geo {
	return Geo{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query identifies one FIRMS area request, minus the credential.
type Query struct {
	BBox   BBox   `json:"bbox"`
	Days   int    `json:"days"`
	Source string `json:"source"`
}

// Validate checks the day window and source.
func (q Query) Validate() error {
	if q.Days < MinDays || q.Days > MaxDays {
		return fmt.Errorf("days must be between %d and %d, got %d", MinDays, MaxDays, q.Days)
	}
	if strings.TrimSpace(q.Source) == "" {
		return errors.New("source is required")
	}
	return q.BBox.Validate()
}

// HotspotRecord is one detected heat anomaly.
type HotspotRecord struct {
	ID            string   `json:"id"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	BrightnessTI4 *float64 `json:"bright_ti4,omitempty"` // Kelvin
	FRP           *float64 `json:"frp,omitempty"`        // MW
	Scan          *float64 `json:"scan,omitempty"`       // degrees
	Track         *float64 `json:"track,omitempty"`      // degrees
	Satellite     string   `json:"satellite"`
	Confidence    string   `json:"confidence"`
	Instrument    string   `json:"instrument,omitempty"`
	Version       string   `json:"version,omitempty"`
	DayNight      string   `json:"daynight,omitempty"`

	AcquiredAtUTC   time.Time `json:"acquired_at_utc"`
	AcquiredAtLocal time.Time `json:"acquired_at_local"`
}

// Dataset is an ordered set of hotspots together with the request that
// produced it. Consumers treat it as read-only.
type Dataset struct {
	Records   []HotspotRecord `json:"records"`
	Query     Query           `json:"query"`
	URL       string          `json:"-"`
	FetchedAt time.Time       `json:"fetched_at"`
	Rejected  []RowError      `json:"-"`

	index map[coordKey]int
}

// NewDataset builds a Dataset from a parse result and indexes it for selection.
func NewDataset(q Query, url string, fetchedAt time.Time, res ParseResult) Dataset {
	return Dataset{
		Records:   res.Records,
		Query:     q,
		URL:       url,
		FetchedAt: fetchedAt,
		Rejected:  res.Rejected,
		index:     buildIndex(res.Records),
	}
}

// EmptyDataset is the terminal "nothing to show" result for a request.
func EmptyDataset(q Query, url string, fetchedAt time.Time) Dataset {
	return Dataset{Query: q, URL: url, FetchedAt: fetchedAt}
}

// Empty reports whether there is nothing to render.
func (d Dataset) Empty() bool { return len(d.Records) == 0 }

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// RedactURL masks the API key inside a request URL so it can be logged or
// returned to clients.
func RedactURL(rawURL, secret string) string {
	if secret == "" {
		return rawURL
	}
	return strings.ReplaceAll(rawURL, secret, "****")
}
