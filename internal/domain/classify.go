package domain

import (
	"math"
	"time"
)

// Marker radius range in presentation units.
const (
	MinRadius = 6.0
	MaxRadius = 20.0
)

// Normalization ranges for the intensity score. Values outside saturate.
const (
	brightnessFloorK = 300.0
	brightnessCeilK  = 400.0
	frpCeilMW        = 50.0
	footprintCeilDeg = 0.005
)

// Severity thresholds for the icon channel.
const (
	activeFRP        = 50.0
	activeBrightness = 367.0
	moderateFRP      = 10.0
	residualBright   = 330.0
)

// Footprint class boundaries on (scan+track)/2, degrees.
const (
	footprintMediumDeg = 0.003
	footprintLargeDeg  = 0.006
)

// AgeTier is one step of the recency color scale.
type AgeTier struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	ColorName string  `json:"color_name"`
	Label     string  `json:"label"`
	MaxHours  float64 `json:"-"`
}

// ageTiers is ordered freshest first; upper bounds are inclusive.
var ageTiers = []AgeTier{
	{Name: "fresh", Color: "#8B0000", ColorName: "darkred", Label: "≤ 6 h", MaxHours: 6},
	{Name: "recent", Color: "#FF0000", ColorName: "red", Label: "≤ 12 h", MaxHours: 12},
	{Name: "aging", Color: "#FFA500", ColorName: "orange", Label: "≤ 36 h", MaxHours: 36},
	{Name: "stale", Color: "#000000", ColorName: "black", Label: "> 36 h", MaxHours: math.Inf(1)},
}

// AgeTiers returns the recency scale, freshest first.
func AgeTiers() []AgeTier {
	out := make([]AgeTier, len(ageTiers))
	copy(out, ageTiers)
	return out
}

// AgeTierFor classifies a detection by hours elapsed between acquisition and now.
// Detections stamped in the future count as fresh.
func AgeTierFor(acquired, now time.Time) AgeTier {
	hours := now.Sub(acquired).Hours()
	for _, t := range ageTiers {
		if hours <= t.MaxHours {
			return t
		}
	}
	return ageTiers[len(ageTiers)-1]
}

// AgeMinutes returns whole minutes since acquisition, truncated toward zero.
func AgeMinutes(acquired, now time.Time) int {
	return int(now.Sub(acquired) / time.Minute)
}

// Intensity holds the per-axis normalizations and their composite score,
// each in [0,1].
type Intensity struct {
	Brightness float64 `json:"brightness"`
	FRP        float64 `json:"frp"`
	Footprint  float64 `json:"footprint"`
	Score      float64 `json:"score"`
}

// IntensityFor computes the composite intensity score of a record. Missing
// measurements contribute zero.
func IntensityFor(rec HotspotRecord) Intensity {
	in := Intensity{
		Brightness: normalize(rec.BrightnessTI4, brightnessFloorK, brightnessCeilK),
		FRP:        normalize(rec.FRP, 0, frpCeilMW),
	}
	if fp, ok := footprint(rec); ok {
		in.Footprint = clamp01(fp / footprintCeilDeg)
	}
	in.Score = (in.Brightness + in.FRP + in.Footprint) / 3
	return in
}

// MarkerRadius maps an intensity score linearly onto [MinRadius, MaxRadius].
func MarkerRadius(score float64) float64 {
	return MinRadius + clamp01(score)*(MaxRadius-MinRadius)
}

// Severity is the discrete icon tier of a detection.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityActive   Severity = "active"
	SeverityModerate Severity = "moderate"
	SeverityResidual Severity = "residual"
)

// SeverityFor buckets a detection by FRP and brightness.
func SeverityFor(rec HotspotRecord) Severity {
	frp := valueOrZero(rec.FRP)
	bright := valueOrZero(rec.BrightnessTI4)

	switch {
	case frp >= activeFRP || bright >= activeBrightness:
		return SeverityActive
	case frp >= moderateFRP:
		return SeverityModerate
	case frp > 0 || bright >= residualBright:
		return SeverityResidual
	default:
		return SeverityNone
	}
}

// Icon returns the marker icon identifier, or nil when no icon is drawn.
func (s Severity) Icon() *string {
	var icon string
	switch s {
	case SeverityActive:
		icon = "fire-active"
	case SeverityModerate:
		icon = "fire-moderate"
	case SeverityResidual:
		icon = "fire-residual"
	default:
		return nil
	}
	return &icon
}

// Label is the human-readable tier name.
func (s Severity) Label() string {
	switch s {
	case SeverityActive:
		return "active flame"
	case SeverityModerate:
		return "moderate burn"
	case SeverityResidual:
		return "residual heat"
	default:
		return ""
	}
}

// FootprintClass is the discrete pixel-size class of a detection.
type FootprintClass string

const (
	FootprintSmall  FootprintClass = "small"
	FootprintMedium FootprintClass = "medium"
	FootprintLarge  FootprintClass = "large"
)

// FootprintClassFor buckets (scan+track)/2. Missing footprints are small.
func FootprintClassFor(rec HotspotRecord) FootprintClass {
	fp, ok := footprint(rec)
	switch {
	case !ok || fp < footprintMediumDeg:
		return FootprintSmall
	case fp < footprintLargeDeg:
		return FootprintMedium
	default:
		return FootprintLarge
	}
}

// footprint is the mean of scan and track; both must be present.
func footprint(rec HotspotRecord) (float64, bool) {
	if rec.Scan == nil || rec.Track == nil {
		return 0, false
	}
	return (*rec.Scan + *rec.Track) / 2, true
}

func normalize(v *float64, lo, hi float64) float64 {
	if v == nil {
		return 0
	}
	return clamp01((*v - lo) / (hi - lo))
}

// clamp01 saturates v into [0,1]; NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}
