package models

// String methods for the custom string types.
// Required for toon serialization, which uses fmt.Stringer.

// LeniencyGroup
func (g LeniencyGroup) String() string { return string(g) }

// SegmentAxis
func (a SegmentAxis) String() string { return string(a) }
