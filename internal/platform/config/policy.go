package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the YAML override for engine thresholds. Absent fields keep
// the environment value.
type PolicyFile struct {
	ManagerAfterDays           *int  `yaml:"managerAfterDays"`
	HRAfterDays                *int  `yaml:"hrAfterDays"`
	NormalReminderIntervalDays *int  `yaml:"normalReminderIntervalDays"`
	RequireCommentsForExtremes *bool `yaml:"requireCommentsForExtremes"`
}

func LoadPolicyFile(path string) (PolicyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PolicyFile{}, fmt.Errorf("reading policy file: %w", err)
	}
	var policy PolicyFile
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return PolicyFile{}, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	return policy, nil
}

func (p PolicyFile) Apply(e *Engine) {
	if p.ManagerAfterDays != nil {
		e.ManagerAfterDays = *p.ManagerAfterDays
	}
	if p.HRAfterDays != nil {
		e.HRAfterDays = *p.HRAfterDays
	}
	if p.NormalReminderIntervalDays != nil {
		e.NormalReminderIntervalDays = *p.NormalReminderIntervalDays
	}
	if p.RequireCommentsForExtremes != nil {
		e.RequireCommentsForExtremes = *p.RequireCommentsForExtremes
	}
}
