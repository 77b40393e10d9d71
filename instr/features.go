package instr

import "strings"

// Feature is one boolean property of an expression's result.
type Feature uint8

const (
	// FeatureNonNullable marks an expression whose result is never null,
	// letting downstream consumers skip null guards. Every primitive-typed
	// expression is non-nullable by construction.
	FeatureNonNullable Feature = 1 << iota

	// FeatureCheap marks an expression that is acceptable to recompute
	// instead of caching its value in a temporary.
	FeatureCheap
)

// String returns the name of the feature.
func (f Feature) String() string {
	switch f {
	case FeatureNonNullable:
		return "non_nullable"
	case FeatureCheap:
		return "cheap"
	default:
		return "unknown"
	}
}

// Features is a set of expression result features. Features compose
// monotonically: a wrapper preserves, adds, or removes a feature explicitly,
// never implicitly.
type Features uint8

// Has returns true if the set contains the feature.
func (fs Features) Has(f Feature) bool {
	return fs&Features(f) != 0
}

// With returns the set with the feature added. Adding a feature that is
// already present yields an identical set.
func (fs Features) With(f Feature) Features {
	return fs | Features(f)
}

// Without returns the set with the feature removed. Removing an absent
// feature yields an identical set.
func (fs Features) Without(f Feature) Features {
	return fs &^ Features(f)
}

// String returns a readable representation like "non_nullable|cheap".
func (fs Features) String() string {
	var parts []string
	if fs.Has(FeatureNonNullable) {
		parts = append(parts, FeatureNonNullable.String())
	}
	if fs.Has(FeatureCheap) {
		parts = append(parts, FeatureCheap.String())
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
