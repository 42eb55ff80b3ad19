package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// LoadSettings decodes a JSON settings patch from r, merges it over base
// and validates the result. Keys missing from the document keep the
// value from base; unknown keys are rejected.
func LoadSettings(base Settings, r io.Reader) (Settings, error) {
	var patch SettingsPatch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		if err == io.EOF {
			return base, base.Validate()
		}
		return Settings{}, fmt.Errorf("LoadSettings: decode failed: %w", err)
	}

	merged := base.Merge(patch)
	if err := merged.Validate(); err != nil {
		return Settings{}, fmt.Errorf("LoadSettings: %w", err)
	}
	return merged, nil
}
