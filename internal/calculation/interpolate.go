package calculation

import "slices"

// FillDirection declares which gaps Interpolate is allowed to fill.
type FillDirection int

const (
	// FillNone leaves every unknown position unknown.
	FillNone FillDirection = iota
	// FillInterior fills gaps strictly between two known positions, linearly.
	FillInterior
	// FillForward fills interior gaps and carries the last known value to the end.
	// Leading gaps are never filled.
	FillForward
)

func (d FillDirection) String() string {
	switch d {
	case FillInterior:
		return "interior"
	case FillForward:
		return "forward"
	default:
		return "none"
	}
}

// Interpolate fills unknown positions of an equally spaced series. values[i] is only
// meaningful where known[i] is true. It returns new slices; the inputs are not modified.
// Filling anything requires at least two anchors, otherwise a *DataGapError naming series
// is returned.
func Interpolate(series string, values []float64, known []bool, dir FillDirection) ([]float64, []bool, error) {
	out := slices.Clone(values)
	filled := slices.Clone(known)

	anchors := make([]int, 0, len(known))
	for i, k := range known {
		if k {
			anchors = append(anchors, i)
		}
	}
	if dir == FillNone || len(anchors) == len(known) {
		return out, filled, nil
	}
	if len(anchors) < 2 {
		return nil, nil, &DataGapError{Series: series, Anchors: len(anchors)}
	}

	for k := 1; k < len(anchors); k++ {
		lo, hi := anchors[k-1], anchors[k]
		span := float64(hi - lo)
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / span
			out[i] = values[lo] + (values[hi]-values[lo])*frac
			filled[i] = true
		}
	}

	if dir == FillForward {
		last := anchors[len(anchors)-1]
		for i := last + 1; i < len(out); i++ {
			out[i] = values[last]
			filled[i] = true
		}
	}
	return out, filled, nil
}
