// Package profile validates run definitions and gives the control loop
// ordered access to their levels.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"controlling_fermenter/internal/models"
)

// MaxLevels is the largest number of levels a gradual run may carry.
const MaxLevels = 5

// ErrInvalidProfile is wrapped by every validation failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Limits bound what a profile may ask for.
type Limits struct {
	MinTargetC float64
	MaxTargetC float64
	// AllowUnboundedLast lets the final level carry a zero duration (hold until stopped).
	AllowUnboundedLast bool
}

// DefaultLimits covers fermentation and mashing temperatures.
func DefaultLimits() Limits {
	return Limits{MinTargetC: 0, MaxTargetC: 100}
}

// Profile is an immutable, validated run definition.
type Profile struct {
	name   string
	mode   models.Mode
	levels []models.Level
}

// New validates def against lim and returns the profile.
func New(def models.RunDefinition, lim Limits) (*Profile, error) {
	mode := normalizeMode(def.Mode)
	if err := Validate(mode, def.Levels, lim); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(def.Name)
	if name == "" && mode != models.ModeIdle {
		return nil, invalid("name is required")
	}
	levels := make([]models.Level, len(def.Levels))
	copy(levels, def.Levels)
	return &Profile{name: name, mode: mode, levels: levels}, nil
}

// Validate checks the level count for the mode and every level's target and duration.
func Validate(mode models.Mode, levels []models.Level, lim Limits) error {
	switch normalizeMode(mode) {
	case models.ModeIdle:
		if len(levels) != 0 {
			return invalid("idle mode takes no levels, got %d", len(levels))
		}
		return nil
	case models.ModeConstant:
		if len(levels) != 1 {
			return invalid("constant mode takes exactly one level, got %d", len(levels))
		}
	case models.ModeGradual:
		if len(levels) < 1 || len(levels) > MaxLevels {
			return invalid("gradual mode takes 1 to %d levels, got %d", MaxLevels, len(levels))
		}
	default:
		return invalid("unknown mode %q: must be IDLE, CONSTANT or GRADUAL", mode)
	}

	last := len(levels) - 1
	for i, l := range levels {
		if math.IsNaN(l.TargetTempC) || math.IsInf(l.TargetTempC, 0) {
			return invalid("level %d: target must be a finite number", i+1)
		}
		if l.TargetTempC < lim.MinTargetC || l.TargetTempC > lim.MaxTargetC {
			return invalid("level %d: target %.2f outside [%.2f, %.2f]", i+1, l.TargetTempC, lim.MinTargetC, lim.MaxTargetC)
		}
		switch {
		case l.DurationSec > 0:
		case l.DurationSec == 0 && i == last && lim.AllowUnboundedLast:
		default:
			return invalid("level %d: duration must be > 0, got %d", i+1, l.DurationSec)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProfile, fmt.Sprintf(format, args...))
}

func normalizeMode(m models.Mode) models.Mode {
	return models.Mode(strings.ToUpper(strings.TrimSpace(string(m))))
}

// Name returns the run name; empty for idle profiles that were submitted without one.
func (p *Profile) Name() string { return p.name }

// Mode returns the validated mode.
func (p *Profile) Mode() models.Mode { return p.mode }

// Len is the number of configured levels.
func (p *Profile) Len() int { return len(p.levels) }

// Level returns the i-th level.
func (p *Profile) Level(i int) (models.Level, bool) {
	if i < 0 || i >= len(p.levels) {
		return models.Level{}, false
	}
	return p.levels[i], true
}

// HasNext reports whether a level follows i.
func (p *Profile) HasNext(i int) bool {
	return i+1 < len(p.levels)
}

// Levels returns a copy of all levels.
func (p *Profile) Levels() []models.Level {
	out := make([]models.Level, len(p.levels))
	copy(out, p.levels)
	return out
}

// Definition turns the profile back into a definition.
func (p *Profile) Definition() models.RunDefinition {
	return models.RunDefinition{Name: p.name, Mode: p.mode, Levels: p.Levels()}
}
