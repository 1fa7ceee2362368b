package match

import "math"

// Tolerance widens with track length but never narrows below eight
// seconds. Candidates grossly longer than the target are rejected
// regardless of tolerance.
const (
	minToleranceSeconds    = 8.0
	toleranceRatio         = 0.06
	grossExcessFloorSecond = 120.0
)

// DurationOK reports whether a candidate running time plausibly matches the
// catalog duration. Either side missing means the check cannot judge and
// passes the candidate through.
func DurationOK(targetMS int, seconds *float64) bool {
	if targetMS <= 0 || seconds == nil {
		return true
	}
	target := math.Max(1.0, float64(targetMS)/1000.0)
	if *seconds > math.Max(target*2, target+grossExcessFloorSecond) {
		return false
	}
	tolerance := math.Max(minToleranceSeconds, toleranceRatio*target)
	return math.Abs(*seconds-target) <= tolerance
}
