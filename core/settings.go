package core

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings is returned when a settings record fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the complete configuration record driving a simulation.
// It is replaced wholesale, never mutated while a tick is running.
type Settings struct {
	// ImmunityRatio is the chance an initial agent starts Immune.
	ImmunityRatio float64 `json:"immunity_ratio"`
	// TransmissionProbability is the infection chance of one exposure.
	TransmissionProbability float64 `json:"transmission_probability"`
	// SelfQuarantineRatio is the chance an initial agent starts Quarantined.
	SelfQuarantineRatio float64 `json:"self_quarantine_ratio"`
	// TransmissionRadius is the exposure distance threshold in map units.
	TransmissionRadius float64 `json:"transmission_radius"`
	StartingPopulation int     `json:"starting_population"`
	StartingInfections int     `json:"starting_infections"`
	// DeathRatePercent feeds the per-tick mortality roll for infected agents.
	DeathRatePercent float64 `json:"death_rate_percent"`
	// RecoveryTicks is how long an infected agent stays infected.
	RecoveryTicks int `json:"recovery_ticks"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		ImmunityRatio:           0.01,
		TransmissionProbability: 0.01,
		SelfQuarantineRatio:     0.01,
		TransmissionRadius:      15,
		StartingPopulation:      100,
		StartingInfections:      3,
		DeathRatePercent:        3,
		RecoveryTicks:           2000,
	}
}

// DeathProbability is the per-tick chance an infected agent dies.
func (s Settings) DeathProbability() float64 {
	return s.DeathRatePercent / float64(s.RecoveryTicks) / 100
}

// Validate checks the record before it reaches the engine.
func (s Settings) Validate() error {
	probabilities := []struct {
		name  string
		value float64
	}{
		{"immunity_ratio", s.ImmunityRatio},
		{"transmission_probability", s.TransmissionProbability},
		{"self_quarantine_ratio", s.SelfQuarantineRatio},
	}
	for _, p := range probabilities {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidSettings, p.name, p.value)
		}
	}
	if s.TransmissionRadius <= 0 {
		return fmt.Errorf("%w: transmission_radius must be positive, got %v", ErrInvalidSettings, s.TransmissionRadius)
	}
	if s.StartingPopulation < 0 {
		return fmt.Errorf("%w: starting_population must not be negative, got %d", ErrInvalidSettings, s.StartingPopulation)
	}
	if s.StartingInfections < 0 {
		return fmt.Errorf("%w: starting_infections must not be negative, got %d", ErrInvalidSettings, s.StartingInfections)
	}
	if s.DeathRatePercent < 0 || s.DeathRatePercent > 100 {
		return fmt.Errorf("%w: death_rate_percent must be within [0,100], got %v", ErrInvalidSettings, s.DeathRatePercent)
	}
	if s.RecoveryTicks <= 0 {
		return fmt.Errorf("%w: recovery_ticks must be positive, got %d", ErrInvalidSettings, s.RecoveryTicks)
	}
	return nil
}

// SettingsPatch is a partial settings update. Nil fields keep the value
// from the record the patch is applied to.
type SettingsPatch struct {
	ImmunityRatio           *float64 `json:"immunity_ratio,omitempty"`
	TransmissionProbability *float64 `json:"transmission_probability,omitempty"`
	SelfQuarantineRatio     *float64 `json:"self_quarantine_ratio,omitempty"`
	TransmissionRadius      *float64 `json:"transmission_radius,omitempty"`
	StartingPopulation      *int     `json:"starting_population,omitempty"`
	StartingInfections      *int     `json:"starting_infections,omitempty"`
	DeathRatePercent        *float64 `json:"death_rate_percent,omitempty"`
	RecoveryTicks           *int     `json:"recovery_ticks,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

// Merge returns s with every field set in p overwritten.
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.ImmunityRatio != nil {
		s.ImmunityRatio = *p.ImmunityRatio
	}
	if p.TransmissionProbability != nil {
		s.TransmissionProbability = *p.TransmissionProbability
	}
	if p.SelfQuarantineRatio != nil {
		s.SelfQuarantineRatio = *p.SelfQuarantineRatio
	}
	if p.TransmissionRadius != nil {
		s.TransmissionRadius = *p.TransmissionRadius
	}
	if p.StartingPopulation != nil {
		s.StartingPopulation = *p.StartingPopulation
	}
	if p.StartingInfections != nil {
		s.StartingInfections = *p.StartingInfections
	}
	if p.DeathRatePercent != nil {
		s.DeathRatePercent = *p.DeathRatePercent
	}
	if p.RecoveryTicks != nil {
		s.RecoveryTicks = *p.RecoveryTicks
	}
	return s
}

// Combine folds a later patch into p; fields set in later win.
func (p SettingsPatch) Combine(later SettingsPatch) SettingsPatch {
	if later.ImmunityRatio != nil {
		p.ImmunityRatio = later.ImmunityRatio
	}
	if later.TransmissionProbability != nil {
		p.TransmissionProbability = later.TransmissionProbability
	}
	if later.SelfQuarantineRatio != nil {
		p.SelfQuarantineRatio = later.SelfQuarantineRatio
	}
	if later.TransmissionRadius != nil {
		p.TransmissionRadius = later.TransmissionRadius
	}
	if later.StartingPopulation != nil {
		p.StartingPopulation = later.StartingPopulation
	}
	if later.StartingInfections != nil {
		p.StartingInfections = later.StartingInfections
	}
	if later.DeathRatePercent != nil {
		p.DeathRatePercent = later.DeathRatePercent
	}
	if later.RecoveryTicks != nil {
		p.RecoveryTicks = later.RecoveryTicks
	}
	return p
}
