package profile

import (
	"errors"
	"math"
	"testing"

	"controlling_fermenter/internal/models"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	lim := DefaultLimits()
	five := []models.Level{{20, 60}, {30, 60}, {40, 60}, {50, 60}, {60, 60}}

	cases := []struct {
		name    string
		mode    models.Mode
		levels  []models.Level
		lim     Limits
		wantErr bool
	}{
		{"idle without levels", models.ModeIdle, nil, lim, false},
		{"idle with a level", models.ModeIdle, []models.Level{{20, 60}}, lim, true},
		{"constant one level", models.ModeConstant, []models.Level{{25, 3600}}, lim, false},
		{"constant two levels", models.ModeConstant, []models.Level{{25, 60}, {30, 60}}, lim, true},
		{"constant no levels", models.ModeConstant, nil, lim, true},
		{"gradual five levels", models.ModeGradual, five, lim, false},
		{"gradual six levels", models.ModeGradual, append(five, models.Level{70, 60}), lim, true},
		{"gradual empty", models.ModeGradual, nil, lim, true},
		{"lowercase mode accepted", "gradual", []models.Level{{20, 60}}, lim, false},
		{"unknown mode", "TURBO", []models.Level{{20, 60}}, lim, true},
		{"zero duration middle", models.ModeGradual, []models.Level{{20, 0}, {25, 60}}, lim, true},
		{"negative duration", models.ModeConstant, []models.Level{{20, -5}}, lim, true},
		{"zero last duration rejected by default", models.ModeGradual, []models.Level{{20, 60}, {25, 0}}, lim, true},
		{
			"zero last duration allowed when configured",
			models.ModeGradual,
			[]models.Level{{20, 60}, {25, 0}},
			Limits{MaxTargetC: 100, AllowUnboundedLast: true},
			false,
		},
		{
			"zero middle duration rejected even when unbounded last allowed",
			models.ModeGradual,
			[]models.Level{{20, 0}, {25, 0}},
			Limits{MaxTargetC: 100, AllowUnboundedLast: true},
			true,
		},
		{"target above max", models.ModeConstant, []models.Level{{101, 60}}, lim, true},
		{"target below min", models.ModeConstant, []models.Level{{-1, 60}}, lim, true},
		{"NaN target", models.ModeConstant, []models.Level{{math.NaN(), 60}}, lim, true},
		{"infinite target", models.ModeGradual, []models.Level{{20, 60}, {math.Inf(1), 60}}, lim, true},
		{
			"NaN target with unbounded limits",
			models.ModeConstant,
			[]models.Level{{math.NaN(), 60}},
			Limits{MinTargetC: math.Inf(-1), MaxTargetC: math.Inf(1)},
			true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tc.mode, tc.levels, tc.lim)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidProfile) {
					t.Fatalf("expected ErrInvalidProfile, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNew_RequiresNameForHeatingModes(t *testing.T) {
	_, err := New(models.RunDefinition{Mode: models.ModeConstant, Levels: []models.Level{{25, 60}}}, DefaultLimits())
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}

	p, err := New(models.RunDefinition{Mode: models.ModeIdle}, DefaultLimits())
	if err != nil {
		t.Fatalf("idle without name: %v", err)
	}
	if p.Name() != "" || p.Len() != 0 {
		t.Fatalf("unexpected idle profile: name=%q len=%d", p.Name(), p.Len())
	}
}

func TestProfile_SequentialAccessAndImmutability(t *testing.T) {
	levels := []models.Level{{20, 60}, {25, 120}}
	p, err := New(models.RunDefinition{Name: " mash ", Mode: "gradual", Levels: levels}, DefaultLimits())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "mash" {
		t.Fatalf("name not trimmed: %q", p.Name())
	}
	if p.Mode() != models.ModeGradual {
		t.Fatalf("mode not normalized: %q", p.Mode())
	}
	if p.Len() != 2 {
		t.Fatalf("Len=%d, want 2", p.Len())
	}

	l, ok := p.Level(1)
	if !ok || l.TargetTempC != 25 || l.DurationSec != 120 {
		t.Fatalf("Level(1)=%+v ok=%v", l, ok)
	}
	if _, ok := p.Level(2); ok {
		t.Fatalf("Level(2) should not exist")
	}
	if !p.HasNext(0) || p.HasNext(1) {
		t.Fatalf("HasNext wrong")
	}

	// mutating the input or the returned copy must not leak into the profile
	levels[0].TargetTempC = 99
	got := p.Levels()
	got[1].TargetTempC = 99
	if l, _ := p.Level(0); l.TargetTempC != 20 {
		t.Fatalf("profile mutated through input slice")
	}
	if l, _ := p.Level(1); l.TargetTempC != 25 {
		t.Fatalf("profile mutated through Levels() copy")
	}
}
