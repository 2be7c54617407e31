package control

import (
	"testing"

	"controlling_fermenter/internal/models"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	const (
		target = 25.0
		band   = 0.4
	)
	cases := []struct {
		name     string
		temp     float64
		heaterOn bool
		state    models.ControlState
		want     bool
	}{
		{"heating forces on below target", 20, false, models.StateHeating, true},
		{"heating forces on above target", 30, false, models.StateHeating, true},
		{"holding turns on below band", 24.7, false, models.StateHolding, true},
		{"holding turns off above band", 25.3, true, models.StateHolding, false},
		{"holding keeps on inside band", 25.1, true, models.StateHolding, true},
		{"holding keeps off inside band", 24.9, false, models.StateHolding, false},
		{"holding keeps state at lower edge", 24.8, false, models.StateHolding, false},
		{"holding keeps state at upper edge", 25.2, true, models.StateHolding, true},
		{"idle is always off", 10, true, models.StateIdle, false},
		{"completed is always off", 10, true, models.StateCompleted, false},
		{"aborted is always off", 10, true, models.StateAborted, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(tc.temp, target, band, tc.heaterOn, tc.state); got != tc.want {
				t.Fatalf("Decide(%.2f, heaterOn=%v, %s)=%v, want %v", tc.temp, tc.heaterOn, tc.state, got, tc.want)
			}
		})
	}
}

func TestDecide_NoChatterInsideBand(t *testing.T) {
	const (
		target = 62.0
		band   = 1.0
	)
	for _, start := range []bool{true, false} {
		on := start
		for temp := target - 0.49; temp < target+0.5; temp += 0.01 {
			on = Decide(temp, target, band, on, models.StateHolding)
			if on != start {
				t.Fatalf("heater toggled inside band at %.2f (start=%v)", temp, start)
			}
		}
	}
}

func TestHoldReached(t *testing.T) {
	if holdReached(24.79, 25, 0.4) {
		t.Fatalf("24.79 should not reach the band")
	}
	if !holdReached(24.8, 25, 0.4) {
		t.Fatalf("24.8 should reach the band")
	}
}
