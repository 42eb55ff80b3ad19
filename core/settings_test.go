package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultSettingsValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("DefaultSettings().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero radius", func(s *Settings) { s.TransmissionRadius = 0 }},
		{"negative radius", func(s *Settings) { s.TransmissionRadius = -1 }},
		{"negative population", func(s *Settings) { s.StartingPopulation = -5 }},
		{"negative infections", func(s *Settings) { s.StartingInfections = -1 }},
		{"immunity above one", func(s *Settings) { s.ImmunityRatio = 1.5 }},
		{"transmission below zero", func(s *Settings) { s.TransmissionProbability = -0.1 }},
		{"quarantine above one", func(s *Settings) { s.SelfQuarantineRatio = 2 }},
		{"death rate above 100", func(s *Settings) { s.DeathRatePercent = 101 }},
		{"zero recovery ticks", func(s *Settings) { s.RecoveryTicks = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Validate() = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestZeroPopulationIsValid(t *testing.T) {
	s := DefaultSettings()
	s.StartingPopulation = 0
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestMergeKeepsUnsetFields(t *testing.T) {
	base := DefaultSettings()
	base.TransmissionRadius = 42

	pop := 250
	merged := base.Merge(SettingsPatch{StartingPopulation: &pop})

	if merged.StartingPopulation != 250 {
		t.Fatalf("StartingPopulation = %d, want 250", merged.StartingPopulation)
	}
	if merged.TransmissionRadius != 42 {
		t.Fatalf("TransmissionRadius = %v, want 42 (prior value, not default)", merged.TransmissionRadius)
	}
}

func TestCombineLaterPatchWins(t *testing.T) {
	first, second := 0.2, 0.7
	radius := 30.0
	p := SettingsPatch{TransmissionProbability: &first, TransmissionRadius: &radius}
	p = p.Combine(SettingsPatch{TransmissionProbability: &second})

	got := DefaultSettings().Merge(p)
	if got.TransmissionProbability != 0.7 || got.TransmissionRadius != 30 {
		t.Fatalf("merged = %+v, want probability 0.7 radius 30", got)
	}
	if (SettingsPatch{}).Empty() != true || p.Empty() {
		t.Fatalf("Empty() misreports patch state")
	}
}

func TestDeathProbability(t *testing.T) {
	s := DefaultSettings()
	if got, want := s.DeathProbability(), 3.0/2000/100; got != want {
		t.Fatalf("DeathProbability() = %v, want %v", got, want)
	}
}

func TestLoadSettings(t *testing.T) {
	doc := `{"starting_population": 500, "transmission_radius": 25.5}`
	got, err := LoadSettings(DefaultSettings(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.StartingPopulation != 500 || got.TransmissionRadius != 25.5 {
		t.Fatalf("LoadSettings = %+v, want population 500 radius 25.5", got)
	}
	if got.RecoveryTicks != 2000 {
		t.Fatalf("RecoveryTicks = %d, want default 2000", got.RecoveryTicks)
	}
}

func TestLoadSettingsEmptyDocument(t *testing.T) {
	got, err := LoadSettings(DefaultSettings(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("LoadSettings = %+v, want defaults", got)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"starting_population": `},
		{"unknown key", `{"map_size": 900}`},
		{"invalid value", `{"immunity_ratio": 3}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSettings(DefaultSettings(), strings.NewReader(tc.doc)); err == nil {
				t.Fatalf("LoadSettings(%q) = nil error, want failure", tc.doc)
			}
		})
	}

	_, err := LoadSettings(DefaultSettings(), strings.NewReader(`{"recovery_ticks": 0}`))
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("LoadSettings error = %v, want ErrInvalidSettings", err)
	}
}
