// Package calibration infers physical pixel sizes from loosely structured
// microscopy metadata.
//
// Upstream loaders disagree about the shape of the calibration block:
// sometimes a string-keyed header mapping, sometimes a bare (z, y, x)
// spacing sequence, sometimes nothing usable at all. Resolve is total over
// all of them; whatever cannot be read degrades to the 1.0 pixel-unit
// default, because producing a report in pixel units beats aborting a long
// batch run over metadata ambiguity.
package calibration

import (
	"math"
	"strconv"
	"strings"
)

// Unit labels reported by the resolver.
const (
	UnitPixels      = "pixels"
	UnitMicrometers = "micrometers"
)

// Calibration is the inferred real-world size of one pixel, per axis. Both
// sizes are strictly positive; an uncalibrated run carries 1.0 sizes and the
// "pixels" unit so downstream scaling stays well-defined.
type Calibration struct {
	// PxY is the physical height of one pixel
	PxY float64

	// PxX is the physical width of one pixel
	PxX float64

	// Unit labels both sizes: "micrometers" when inferred, else "pixels"
	Unit string
}

// Default returns the uncalibrated fallback: unit sizes, pixel units.
func Default() Calibration {
	return Calibration{PxY: 1.0, PxX: 1.0, Unit: UnitPixels}
}

// MeanPixelSize is the isotropic conversion factor applied to every
// length-like metric: the average of the two axis sizes. It is strictly
// positive for any resolver output.
func (c Calibration) MeanPixelSize() float64 {
	return (c.PxX + c.PxY) / 2.0
}

// Resolve infers a calibration from an arbitrary metadata value. It is
// total: no metadata shape, type or content makes it fail, and every
// component that cannot be read keeps its default.
func Resolve(meta interface{}) Calibration {
	return ResolveVariant(Classify(meta))
}

// ResolveVariant resolves an already-classified metadata variant and applies
// the size post-condition. The match covers the closed variant set; a nil
// Variant takes the Unrecognized path.
func ResolveVariant(v Variant) Calibration {
	var cal Calibration
	switch m := v.(type) {
	case StructuredMapping:
		cal = resolveMapping(m)
	case OrderedSequence:
		cal = resolveSequence(m)
	case Unrecognized:
		cal = Default()
	default:
		cal = Default()
	}
	cal.PxY = sanitizeSize(cal.PxY)
	cal.PxX = sanitizeSize(cal.PxX)
	return cal
}

// resolveMapping scans a string-keyed metadata block for pixel-size entries.
//
// Keys are matched case-insensitively on the substrings "physical", "voxel"
// and "spacing". A matching key that contains "y" assigns PxY, and one that
// contains "x" assigns PxX; a successful assignment also fixes the unit to
// micrometers. The containment test runs over the whole key, so a key like
// "PhysicalSizeX" assigns both axes (the "y" inside "physical" matches) and
// any "voxel" key assigns PxX. Per-entry coercion failures skip the entry
// without aborting the scan.
func resolveMapping(m StructuredMapping) Calibration {
	cal := Default()
	resolvedY := false
	resolvedX := false

	for _, e := range m.Entries {
		key := strings.ToLower(e.Key)
		if !strings.Contains(key, "physical") &&
			!strings.Contains(key, "voxel") &&
			!strings.Contains(key, "spacing") {
			continue
		}

		val, ok := coerceFloat(e.Value)
		if !ok {
			continue
		}
		if strings.Contains(key, "y") {
			cal.PxY = val
			cal.Unit = UnitMicrometers
			resolvedY = true
		}
		if strings.Contains(key, "x") {
			cal.PxX = val
			cal.Unit = UnitMicrometers
			resolvedX = true
		}
	}

	// Last resort, only when no key matched at all.
	if !resolvedY && !resolvedX {
		if first, second, ok := firstTwoNumeric(m.Entries); ok {
			cal.PxY, cal.PxX = first, second
			cal.Unit = UnitMicrometers
		}
	}
	return cal
}

// firstTwoNumeric returns the first two numerically-typed values in entry
// order. The heuristic is order-fragile: entry order decides which two
// numbers become pixel sizes, so an unrelated numeric field (a channel
// count, a frame total) can be mistaken for a spacing. It exists for
// sources whose header carries bare spacings under unrecognizable keys,
// and it stays confined to the no-key-matched branch above.
func firstTwoNumeric(entries []Entry) (float64, float64, bool) {
	first, haveFirst := 0.0, false
	for _, e := range entries {
		v, ok := numericValue(e.Value)
		if !ok {
			continue
		}
		if !haveFirst {
			first, haveFirst = v, true
			continue
		}
		return first, v, true
	}
	return 0, 0, false
}

// resolveSequence reads positional spacing metadata. Three or more values
// are taken as (z, y, x) spacings, so indices 1 and 2 become (PxY, PxX);
// one or two values mean a single isotropic size in element 0. Any element
// that refuses coercion abandons the branch back to pixel-unit defaults.
func resolveSequence(s OrderedSequence) Calibration {
	cal := Default()
	if len(s.Values) == 0 {
		return cal
	}

	if len(s.Values) >= 3 {
		y, okY := coerceFloat(s.Values[1])
		x, okX := coerceFloat(s.Values[2])
		if !okY || !okX {
			return Default()
		}
		cal.PxY, cal.PxX = y, x
	} else {
		v, ok := coerceFloat(s.Values[0])
		if !ok {
			return Default()
		}
		cal.PxY, cal.PxX = v, v
	}
	cal.Unit = UnitMicrometers
	return cal
}

// sanitizeSize replaces zero, negative and non-finite sizes with 1.0 so the
// conversion factor built from them is always finite and positive.
func sanitizeSize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 1.0
	}
	return v
}

// coerceFloat widens any numeric value, or parses a numeric string, into a
// float64. Everything else fails the coercion.
func coerceFloat(v interface{}) (float64, bool) {
	if n, ok := numericValue(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// numericValue accepts only numerically-typed values. Numeric strings do not
// count here; they satisfy coerceFloat but never the fallback pair.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
