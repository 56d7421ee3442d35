// Package domain models NASA FIRMS active-fire (hotspot) detections and the
// rules that turn them into map markers.
//
// # Data Source
//
// Detections come from the FIRMS area API, which returns one CSV document per
// request:
//
//	GET {base}/{MAP_KEY}/{SOURCE}/{west},{south},{east},{north}/{days}
//
// SOURCE selects the sensor product (e.g. VIIRS_NOAA20_NRT) and days is the
// look-back window in whole days (1–10). An invalid MAP_KEY is answered with
// HTTP 200 and a plain-text body, which fails the column check below and is
// therefore reported as an empty dataset rather than as an error.
//
// # FIRMS Data Conventions
//
// Required columns:
//
//	acq_date, acq_time, latitude, longitude, bright_ti4, frp,
//	scan, track, satellite, confidence
//
// Time format:
//
//	acq_date is "YYYY-MM-DD"; acq_time is HHMM in UTC without zero padding,
//	e.g. "930" = 09:30 UTC and "5" = 00:05 UTC. Values are left-padded to
//	four digits and parsed with the strict layout "2006-01-02 1504".
//	A row whose date or time does not parse is rejected individually; it is
//	never defaulted to another timestamp.
//
// Measurements:
//
//	bright_ti4  I-4 channel brightness temperature, Kelvin
//	frp         fire radiative power, MW
//	scan/track  pixel footprint, degrees
//
// Empty or non-numeric measurements are carried as nil and contribute
// nothing to the intensity score.
//
// Confidence:
//
//	VIIRS products deliver "l", "n" or "h"; MODIS products deliver 0–100.
//	The value is passed through untouched.
//
// # Visual Encoding
//
// Each marker channel is driven by exactly one rule:
//
//	color      age since acquisition: ≤6h fresh | ≤12h recent | ≤36h aging | >36h stale
//	radius     intensity score in [0,1] mapped linearly onto 6–20
//	icon       severity: active | moderate | residual | none
//	footprint  (scan+track)/2: <0.003° small | <0.006° medium | else large
//
// The intensity score is the mean of three clamped normalizations:
// brightness over 300–400 K, FRP over 0–50 MW and footprint over 0–0.005°.
//
// # Selection
//
// A map click is matched to a record by rounding both coordinates to five
// decimal places (about 1.1 m). Records sharing a rounded key resolve to the
// first one in dataset order. See [Resolve].
package domain
