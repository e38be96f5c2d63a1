package scaling

import "testing"

func TestIsLikelyScaled(t *testing.T) {
	cases := []struct {
		name      string
		creatives int
		runs      int
		want      bool
	}{
		{"three creatives", 3, 1, true},
		{"two creatives fresh", 2, 1, false},
		{"third sighting", 1, 3, true},
		{"second sighting", 2, 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsLikelyScaled(tc.creatives, tc.runs); got != tc.want {
				t.Errorf("IsLikelyScaled(%d, %d) = %v, want %v", tc.creatives, tc.runs, got, tc.want)
			}
		})
	}
}

func TestShouldMarkScaled(t *testing.T) {
	if !ShouldMarkScaled(false, 3, 0) {
		t.Error("three creatives must scale even without client flag")
	}
	if ShouldMarkScaled(false, 2, 0) {
		t.Error("two creatives on first sighting must not scale")
	}
	if !ShouldMarkScaled(false, 1, 2) {
		t.Error("third persisted run must scale")
	}
	if !ShouldMarkScaled(true, 1, 0) {
		t.Error("client flag alone must scale")
	}
}

func TestTemperature(t *testing.T) {
	if Temperature(true) != "hot" || Temperature(false) != "warm" {
		t.Error("unexpected temperature mapping")
	}
}
