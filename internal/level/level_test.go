package level

import (
	"math"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		total    int
		level    int
		floor    int
		ceiling  int
		progress float64
	}{
		{0, 1, 0, 200, 0},
		{199, 1, 0, 200, 99.5},
		{200, 2, 200, 400, 0},
		{399, 2, 200, 400, 99.5},
		{400, 3, 400, 700, 0},
		{699, 3, 400, 700, 99.66666666666667},
		{700, 4, 700, 1000, 0},
		{999, 4, 700, 1000, 99.66666666666667},
		{1000, 5, 1000, 2000, 100},
		{1500, 5, 1000, 2000, 100},
		{1_000_000, 5, 1000, 2000, 100},
		{-25, 1, 0, 200, 0},
	}

	for _, tt := range tests {
		got := Of(tt.total)
		if got.Number != tt.level {
			t.Errorf("Of(%d).Number = %d, want %d", tt.total, got.Number, tt.level)
		}
		if got.Floor != tt.floor || got.Ceiling != tt.ceiling {
			t.Errorf("Of(%d) bounds = [%d, %d), want [%d, %d)", tt.total, got.Floor, got.Ceiling, tt.floor, tt.ceiling)
		}
		if math.Abs(got.Progress-tt.progress) > 1e-9 {
			t.Errorf("Of(%d).Progress = %v, want %v", tt.total, got.Progress, tt.progress)
		}
	}
}

func TestOfProgressInRange(t *testing.T) {
	for total := 0; total <= 2500; total++ {
		p := Of(total).Progress
		if p < 0 || p > 100 || math.IsNaN(p) {
			t.Fatalf("Of(%d).Progress = %v, want within [0, 100]", total, p)
		}
	}
}

func TestPointsToNext(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 200},
		{150, 50},
		{200, 200},
		{999, 1},
		{1000, 0},
		{5000, 0},
	}
	for _, tt := range tests {
		if got := PointsToNext(tt.total); got != tt.want {
			t.Errorf("PointsToNext(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}
