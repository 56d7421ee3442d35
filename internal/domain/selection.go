package domain

import "math"

// selectionScale rounds coordinates to five decimal places.
const selectionScale = 1e5

// coordKey is a coordinate pair rounded to five decimals, held as integers so
// map lookups are exact.
type coordKey struct {
	lat int64
	lon int64
}

// keyFor rounds half to even on the scaled value, the same rule numeric
// libraries apply when rounding to a fixed number of decimals.
func keyFor(lat, lon float64) coordKey {
	return coordKey{
		lat: int64(math.RoundToEven(lat * selectionScale)),
		lon: int64(math.RoundToEven(lon * selectionScale)),
	}
}

// buildIndex maps each rounded coordinate to the first record carrying it.
func buildIndex(records []HotspotRecord) map[coordKey]int {
	idx := make(map[coordKey]int, len(records))
	for i, rec := range records {
		k := keyFor(rec.Latitude, rec.Longitude)
		if _, seen := idx[k]; !seen {
			idx[k] = i
		}
	}
	return idx
}

// Resolve returns the first record whose coordinates, rounded to five
// decimals, equal the rounded click position. A miss is not an error.
func Resolve(ds Dataset, lat, lon float64) (HotspotRecord, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return HotspotRecord{}, false
	}
	k := keyFor(lat, lon)

	if ds.index != nil {
		i, ok := ds.index[k]
		if !ok {
			return HotspotRecord{}, false
		}
		return ds.Records[i], true
	}

	// Datasets assembled by hand carry no index.
	for _, rec := range ds.Records {
		if keyFor(rec.Latitude, rec.Longitude) == k {
			return rec, true
		}
	}
	return HotspotRecord{}, false
}
