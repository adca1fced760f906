package meterutils

import "math"

// No negative values
func KwToW(kw float64) float64 {
	if kw < 0 {
		return 0
	}
	return math.Round(kw * 1000)
}

func WToKw(w float64) float64 {
	return w / 1000
}

// NormalizeCumulativeKwh treats an exactly-zero cumulative counter as absent.
// A counter that has been nonzero cannot legitimately read zero again, so a
// zero is always a meter glitch rather than a true reading.
func NormalizeCumulativeKwh(kwh *float64) *float64 {
	if kwh == nil || *kwh == 0 {
		return nil
	}
	return kwh
}

// Float64Ptr returns a pointer to v. Convenience for nullable columns.
func Float64Ptr(v float64) *float64 {
	return &v
}
