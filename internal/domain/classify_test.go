package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func measuredRecord(bright, frp, scan, track float64) HotspotRecord {
	return HotspotRecord{
		BrightnessTI4: f64(bright),
		FRP:           f64(frp),
		Scan:          f64(scan),
		Track:         f64(track),
	}
}

func TestAgeTierFor(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		tier string
	}{
		{"just acquired", 0, "fresh"},
		{"future timestamp", -30 * time.Minute, "fresh"},
		{"exactly 6h", 6 * time.Hour, "fresh"},
		{"just past 6h", 6*time.Hour + time.Second, "recent"},
		{"exactly 12h", 12 * time.Hour, "recent"},
		{"13h", 13 * time.Hour, "aging"},
		{"exactly 36h", 36 * time.Hour, "aging"},
		{"just past 36h", 36*time.Hour + time.Minute, "stale"},
		{"ten days", 240 * time.Hour, "stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := AgeTierFor(testNow.Add(-tt.age), testNow)
			assert.Equal(t, tt.tier, tier.Name)
		})
	}
}

func TestAgeTierFor_StableWithinTier(t *testing.T) {
	// Every age inside one tier maps to the same color.
	for _, tier := range AgeTiers() {
		first := AgeTierFor(testNow.Add(-time.Duration(math.Min(tier.MaxHours, 100)*float64(time.Hour))), testNow)
		assert.Equal(t, tier.Name, first.Name)
	}
	a := AgeTierFor(testNow.Add(-7*time.Hour), testNow)
	b := AgeTierFor(testNow.Add(-11*time.Hour-59*time.Minute), testNow)
	assert.Equal(t, a.Color, b.Color)
}

func TestAgeTiers_Colors(t *testing.T) {
	tiers := AgeTiers()
	require.Len(t, tiers, 4)
	assert.Equal(t, "#8B0000", tiers[0].Color)
	assert.Equal(t, "#FF0000", tiers[1].Color)
	assert.Equal(t, "#FFA500", tiers[2].Color)
	assert.Equal(t, "#000000", tiers[3].Color)

	tiers[0].Color = "mutated"
	assert.Equal(t, "#8B0000", AgeTiers()[0].Color, "callers get a copy")
}

func TestAgeMinutes(t *testing.T) {
	assert.Equal(t, 42, AgeMinutes(testNow.Add(-42*time.Minute-59*time.Second), testNow))
	assert.Equal(t, 0, AgeMinutes(testNow, testNow))
	assert.Equal(t, -5, AgeMinutes(testNow.Add(5*time.Minute), testNow))
}

func TestIntensityFor(t *testing.T) {
	t.Run("midpoint", func(t *testing.T) {
		in := IntensityFor(measuredRecord(350, 25, 0.0025, 0.0025))
		assert.InDelta(t, 0.5, in.Brightness, 1e-9)
		assert.InDelta(t, 0.5, in.FRP, 1e-9)
		assert.InDelta(t, 0.5, in.Footprint, 1e-9)
		assert.InDelta(t, 0.5, in.Score, 1e-9)
		assert.InDelta(t, 13.0, MarkerRadius(in.Score), 1e-9)
	})

	t.Run("saturates above range", func(t *testing.T) {
		hot := IntensityFor(measuredRecord(1000, 500, 0.5, 0.5))
		edge := IntensityFor(measuredRecord(400, 50, 0.005, 0.005))
		assert.Equal(t, edge, hot)
		assert.Equal(t, 1.0, hot.Score)
		assert.Equal(t, MaxRadius, MarkerRadius(hot.Score))
	})

	t.Run("saturates below range", func(t *testing.T) {
		cold := IntensityFor(measuredRecord(100, -3, -1, -1))
		assert.Equal(t, Intensity{}, cold)
		assert.Equal(t, MinRadius, MarkerRadius(cold.Score))
	})

	t.Run("missing values contribute zero", func(t *testing.T) {
		in := IntensityFor(HotspotRecord{FRP: f64(50)})
		assert.Equal(t, 0.0, in.Brightness)
		assert.Equal(t, 1.0, in.FRP)
		assert.Equal(t, 0.0, in.Footprint)
		assert.InDelta(t, 1.0/3, in.Score, 1e-9)
	})

	t.Run("half footprint is absent", func(t *testing.T) {
		in := IntensityFor(HotspotRecord{Scan: f64(0.004)})
		assert.Equal(t, 0.0, in.Footprint)
	})

	t.Run("non-finite inputs", func(t *testing.T) {
		in := IntensityFor(measuredRecord(math.NaN(), math.Inf(1), math.Inf(-1), 0))
		assert.Equal(t, 0.0, in.Brightness)
		assert.Equal(t, 1.0, in.FRP)
		assert.False(t, math.IsNaN(in.Score))
	})
}

func TestMarkerRadius_Monotonic(t *testing.T) {
	base := measuredRecord(320, 5, 0.001, 0.001)
	r0 := MarkerRadius(IntensityFor(base).Score)

	steps := []func(HotspotRecord, float64) HotspotRecord{
		func(r HotspotRecord, d float64) HotspotRecord { r.BrightnessTI4 = f64(*r.BrightnessTI4 + d*20); return r },
		func(r HotspotRecord, d float64) HotspotRecord { r.FRP = f64(*r.FRP + d*10); return r },
		func(r HotspotRecord, d float64) HotspotRecord {
			r.Scan = f64(*r.Scan + d*0.001)
			r.Track = f64(*r.Track + d*0.001)
			return r
		},
	}

	for i, step := range steps {
		prev := r0
		rec := base
		for d := 0; d < 10; d++ {
			rec = step(rec, 1)
			r := MarkerRadius(IntensityFor(rec).Score)
			assert.GreaterOrEqual(t, r, prev, "axis %d step %d", i, d)
			assert.GreaterOrEqual(t, r, MinRadius)
			assert.LessOrEqual(t, r, MaxRadius)
			prev = r
		}
	}
}

func TestMarkerRadius_Bounds(t *testing.T) {
	for _, s := range []float64{-5, 0, 0.25, 1, 7, math.NaN(), math.Inf(1)} {
		r := MarkerRadius(s)
		assert.GreaterOrEqual(t, r, MinRadius, "score %v", s)
		assert.LessOrEqual(t, r, MaxRadius, "score %v", s)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		name     string
		rec      HotspotRecord
		expected Severity
		icon     string
	}{
		{"high frp", HotspotRecord{FRP: f64(50)}, SeverityActive, "fire-active"},
		{"very bright", HotspotRecord{FRP: f64(1), BrightnessTI4: f64(367)}, SeverityActive, "fire-active"},
		{"moderate frp", HotspotRecord{FRP: f64(10), BrightnessTI4: f64(340)}, SeverityModerate, "fire-moderate"},
		{"weak frp", HotspotRecord{FRP: f64(0.4)}, SeverityResidual, "fire-residual"},
		{"warm, no frp", HotspotRecord{FRP: f64(0), BrightnessTI4: f64(330)}, SeverityResidual, "fire-residual"},
		{"cool, no frp", HotspotRecord{FRP: f64(0), BrightnessTI4: f64(310)}, SeverityNone, ""},
		{"nothing measured", HotspotRecord{}, SeverityNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SeverityFor(tt.rec)
			assert.Equal(t, tt.expected, s)
			if tt.icon == "" {
				assert.Nil(t, s.Icon())
				assert.Empty(t, s.Label())
				return
			}
			require.NotNil(t, s.Icon())
			assert.Equal(t, tt.icon, *s.Icon())
			assert.NotEmpty(t, s.Label())
		})
	}
}

func TestFootprintClassFor(t *testing.T) {
	tests := []struct {
		name     string
		scan     *float64
		track    *float64
		expected FootprintClass
	}{
		{"small", f64(0.001), f64(0.002), FootprintSmall},
		{"medium lower bound", f64(0.003), f64(0.003), FootprintMedium},
		{"medium", f64(0.004), f64(0.005), FootprintMedium},
		{"large lower bound", f64(0.006), f64(0.006), FootprintLarge},
		{"large", f64(0.4), f64(0.38), FootprintLarge},
		{"missing track", f64(0.01), nil, FootprintSmall},
		{"missing both", nil, nil, FootprintSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FootprintClassFor(HotspotRecord{Scan: tt.scan, Track: tt.track}))
		})
	}
}
