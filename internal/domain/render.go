package domain

import (
	"fmt"
	"strconv"
	"time"
)

const (
	utcLayout    = "2006-01-02 15:04"
	localLayout  = "02/01 15:04"
	notAvailable = "n/a"
)

// PopupFields are the formatted values shown for one hotspot, in both the
// marker popup and the detail panel.
type PopupFields struct {
	FRP        string `json:"frp"`
	Brightness string `json:"brightness"`
	Scan       string `json:"scan"`
	Track      string `json:"track"`
	Satellite  string `json:"satellite"`
	Confidence string `json:"confidence"`
	UTC        string `json:"utc"`
	Local      string `json:"local"`
}

// Marker is the rendering directive for one hotspot.
type Marker struct {
	ID             string         `json:"id"`
	Position       Geo            `json:"position"`
	Color          string         `json:"color"`
	AgeTier        string         `json:"age_tier"`
	AgeMinutes     int            `json:"age_minutes"`
	Radius         float64        `json:"radius"`
	Intensity      Intensity      `json:"intensity"`
	Icon           *string        `json:"icon"`
	Severity       Severity       `json:"severity,omitempty"`
	FootprintClass FootprintClass `json:"footprint_class"`
	Tooltip        string         `json:"tooltip"`
	Popup          PopupFields    `json:"popup"`
}

// MarkerFor classifies a single record. It never fails: missing measurements
// fall back to neutral values.
func MarkerFor(rec HotspotRecord, now time.Time) Marker {
	tier := AgeTierFor(rec.AcquiredAtUTC, now)
	intensity := IntensityFor(rec)
	severity := SeverityFor(rec)

	return Marker{
		ID:             rec.ID,
		Position:       Geo{Lat: rec.Latitude, Lon: rec.Longitude},
		Color:          tier.Color,
		AgeTier:        tier.Name,
		AgeMinutes:     AgeMinutes(rec.AcquiredAtUTC, now),
		Radius:         MarkerRadius(intensity.Score),
		Intensity:      intensity,
		Icon:           severity.Icon(),
		Severity:       severity,
		FootprintClass: FootprintClassFor(rec),
		Tooltip:        Tooltip(rec, now),
		Popup:          PopupFor(rec),
	}
}

// BuildMarkers classifies every record of a dataset, preserving order.
func BuildMarkers(ds Dataset, now time.Time) []Marker {
	markers := make([]Marker, 0, len(ds.Records))
	for _, rec := range ds.Records {
		markers = append(markers, MarkerFor(rec, now))
	}
	return markers
}

// Tooltip renders the hover text, e.g. "42 min • FRP 12.3".
func Tooltip(rec HotspotRecord, now time.Time) string {
	return fmt.Sprintf("%d min • FRP %s", AgeMinutes(rec.AcquiredAtUTC, now), formatFixed(rec.FRP, 1))
}

// PopupFor formats the structured detail fields of a record.
func PopupFor(rec HotspotRecord) PopupFields {
	return PopupFields{
		FRP:        formatFixed(rec.FRP, 1),
		Brightness: formatShortest(rec.BrightnessTI4),
		Scan:       formatFixed(rec.Scan, 4),
		Track:      formatFixed(rec.Track, 4),
		Satellite:  rec.Satellite,
		Confidence: rec.Confidence,
		UTC:        rec.AcquiredAtUTC.UTC().Format(utcLayout),
		Local:      rec.AcquiredAtLocal.Format(localLayout),
	}
}

// DetailField is one labelled row of the detail panel.
type DetailField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Details is the side-panel projection of a selected hotspot.
type Details struct {
	ID       string        `json:"id"`
	Position Geo           `json:"position"`
	Popup    PopupFields   `json:"popup"`
	Fields   []DetailField `json:"fields"`
}

// DetailsFor builds the detail-panel rows for a record.
func DetailsFor(rec HotspotRecord) Details {
	p := PopupFor(rec)
	return Details{
		ID:       rec.ID,
		Position: Geo{Lat: rec.Latitude, Lon: rec.Longitude},
		Popup:    p,
		Fields: []DetailField{
			{Field: "FRP (MW)", Value: p.FRP},
			{Field: "Brightness (K)", Value: p.Brightness},
			{Field: "Scan °", Value: p.Scan},
			{Field: "Track °", Value: p.Track},
			{Field: "Satellite", Value: p.Satellite},
			{Field: "Confidence", Value: p.Confidence},
			{Field: "UTC", Value: p.UTC},
			{Field: "Local", Value: p.Local},
		},
	}
}

// LegendEntry describes one color of the age scale.
type LegendEntry struct {
	Tier  string `json:"tier"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend returns the age-color legend, freshest first.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(ageTiers))
	for _, t := range ageTiers {
		out = append(out, LegendEntry{Tier: t.Name, Color: t.Color, Label: t.Label})
	}
	return out
}

func formatFixed(v *float64, decimals int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func formatShortest(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
