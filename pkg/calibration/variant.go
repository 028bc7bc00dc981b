package calibration

import (
	"sort"
)

// Entry is a single key/value pair of a StructuredMapping. Entries keep the
// order in which the metadata source listed its keys.
type Entry struct {
	Key   string
	Value interface{}
}

// Variant is the closed set of shapes calibration metadata is read against.
// Classify maps an arbitrary loader value onto exactly one of
// StructuredMapping, OrderedSequence or Unrecognized, and ResolveVariant
// matches exhaustively over the set, so every degrade path is an explicit
// branch rather than a swallowed error.
type Variant interface {
	calibrationVariant()
}

// StructuredMapping is string-keyed metadata, such as an OME-style header
// block with PhysicalSizeY/PhysicalSizeX entries.
type StructuredMapping struct {
	Entries []Entry
}

// OrderedSequence is positional spacing metadata, such as a (z, y, x)
// spacing triple.
type OrderedSequence struct {
	Values []interface{}
}

// Unrecognized is every metadata shape the resolver has no reading for. It
// resolves to the pixel-unit default calibration.
type Unrecognized struct{}

func (StructuredMapping) calibrationVariant() {}
func (OrderedSequence) calibrationVariant()   {}
func (Unrecognized) calibrationVariant()      {}

// Classify maps an arbitrary metadata value onto the variant the resolver
// understands. Go maps carry no iteration order, so string-keyed maps are
// classified with their entries in sorted-key order; loaders that know the
// true document order should build the StructuredMapping themselves.
func Classify(meta interface{}) Variant {
	switch m := meta.(type) {
	case nil:
		return Unrecognized{}
	case StructuredMapping:
		return m
	case OrderedSequence:
		return m
	case Unrecognized:
		return m
	case map[string]interface{}:
		return mappingOf(m)
	case map[string]float64:
		return mappingOf(m)
	case map[string]float32:
		return mappingOf(m)
	case map[string]int:
		return mappingOf(m)
	case map[string]string:
		return mappingOf(m)
	case []interface{}:
		return OrderedSequence{Values: m}
	case []float64:
		return sequenceOf(m)
	case []float32:
		return sequenceOf(m)
	case []int:
		return sequenceOf(m)
	case []string:
		return sequenceOf(m)
	default:
		return Unrecognized{}
	}
}

// mappingOf builds a StructuredMapping from a Go map, ordering entries by
// sorted key.
func mappingOf[V any](m map[string]V) StructuredMapping {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(m))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: m[k]})
	}
	return StructuredMapping{Entries: entries}
}

// sequenceOf boxes a typed slice into an OrderedSequence.
func sequenceOf[T any](vals []T) OrderedSequence {
	boxed := make([]interface{}, len(vals))
	for i, v := range vals {
		boxed[i] = v
	}
	return OrderedSequence{Values: boxed}
}
