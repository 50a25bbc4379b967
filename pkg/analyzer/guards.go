package analyzer

import "time"

// LCS set/cleared codes sit this far apart.
const lcsClearedDelta = 16

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// wholeSeconds truncates d to whole seconds.
func wholeSeconds(d time.Duration) int {
	return int(d / time.Second)
}

func isWithinSameDay(d time.Duration) bool {
	return d < 24*time.Hour
}

func exceedsMaxPeriod(d, periodMax time.Duration) bool {
	return wholeSeconds(d) > wholeSeconds(periodMax)
}

func exceedsMinPeriod(d, periodMin time.Duration) bool {
	return wholeSeconds(d) > wholeSeconds(periodMin)
}

func missCounterExceeded(misses, limit int) bool {
	return misses > limit
}
