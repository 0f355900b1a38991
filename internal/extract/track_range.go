package extract

import "strconv"

// TrackRange is the 1-based span of tracks handed to the extractor.
type TrackRange struct {
	Start int
	Total int
}

// ClipRange builds a range from a requested start track, clamping it into
// [1, total].
func ClipRange(start, total int) TrackRange {
	if start > total {
		start = total
	}
	if start < 1 {
		start = 1
	}
	return TrackRange{Start: start, Total: total}
}

// StartIndex is the zero-based index of the first track played.
func (r TrackRange) StartIndex() int {
	return r.Start - 1
}

// String renders the icedax track= value: "N" for the last track alone,
// "S+T" otherwise.
func (r TrackRange) String() string {
	if r.Start == r.Total {
		return strconv.Itoa(r.Start)
	}
	return strconv.Itoa(r.Start) + "+" + strconv.Itoa(r.Total)
}
