// Package level maps a point total onto the five-step level ladder.
package level

// MaxLevel is the highest reachable level.
const MaxLevel = 5

// Thresholds holds the lower bound of each level, index 0 being level 1.
var Thresholds = [MaxLevel]int{0, 200, 400, 700, 1000}

// topCeiling is the display ceiling reported for the last level.
const topCeiling = 2000

// Level is a position on the ladder with progress toward the next step.
type Level struct {
	Number   int     `json:"level"`
	Floor    int     `json:"floor"`
	Ceiling  int     `json:"ceiling"`
	Progress float64 `json:"progress"`
}

// Of returns the level for a point total. Negative totals count as zero.
// The last level always reports full progress.
func Of(total int) Level {
	if total < 0 {
		total = 0
	}

	n := 1
	for i := MaxLevel - 1; i >= 0; i-- {
		if total >= Thresholds[i] {
			n = i + 1
			break
		}
	}

	if n == MaxLevel {
		return Level{Number: n, Floor: Thresholds[n-1], Ceiling: topCeiling, Progress: 100}
	}

	floor, ceiling := Thresholds[n-1], Thresholds[n]
	progress := float64(total-floor) / float64(ceiling-floor) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return Level{Number: n, Floor: floor, Ceiling: ceiling, Progress: progress}
}

// PointsToNext reports how many points separate total from the next level.
// It returns 0 at the last level.
func PointsToNext(total int) int {
	l := Of(total)
	if l.Number == MaxLevel {
		return 0
	}
	if total < 0 {
		total = 0
	}
	return l.Ceiling - total
}
