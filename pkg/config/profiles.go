package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/routegate/pkg/policy"
)

// ProfilesConfig holds the trigger-profile table and classifier options.
type ProfilesConfig struct {
	// Profiles maps skill names to the trigger classes they auto-route on.
	Profiles map[string][]string `yaml:"profiles"`

	Classifier ClassifierConfig `yaml:"classifier,omitempty"`
}

// ClassifierConfig configures the optional LLM tie-breaker for trigger
// classification.
type ClassifierConfig struct {
	Adapter             string  `yaml:"adapter,omitempty"`
	Model               string  `yaml:"model,omitempty"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`
	EnableTieBreaker    *bool   `yaml:"enable_tie_breaker,omitempty"`
}

// LoadProfilesConfig reads profile configuration from a YAML file.
func LoadProfilesConfig(path string) (*ProfilesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ProfilesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyProfileDefaults(&cfg)
	return &cfg, nil
}

// DefaultProfilesConfig returns the built-in profile configuration.
func DefaultProfilesConfig() *ProfilesConfig {
	profiles := make(map[string][]string)
	for skill, classes := range policy.DefaultProfileTable() {
		names := make([]string, 0, len(classes))
		for _, class := range classes {
			names = append(names, class.String())
		}
		profiles[skill.String()] = names
	}

	cfg := &ProfilesConfig{Profiles: profiles}
	applyProfileDefaults(cfg)
	return cfg
}

// BuildProfiles validates the raw table and returns the engine's registry.
// Unknown skill or trigger-class names surface as config errors here rather
// than at decision time.
func (c *ProfilesConfig) BuildProfiles() (*policy.Profiles, error) {
	if len(c.Profiles) == 0 {
		return nil, fmt.Errorf("profiles table is empty")
	}

	table := make(map[policy.Skill][]policy.TriggerClass, len(c.Profiles))
	for rawSkill, rawClasses := range c.Profiles {
		skill, err := policy.ParseSkill(rawSkill)
		if err != nil {
			return nil, err
		}
		classes := make([]policy.TriggerClass, 0, len(rawClasses))
		for _, rawClass := range rawClasses {
			class, err := policy.ParseTriggerClass(rawClass)
			if err != nil {
				return nil, err
			}
			classes = append(classes, class)
		}
		table[skill] = classes
	}

	return policy.NewProfiles(table)
}

func applyProfileDefaults(cfg *ProfilesConfig) {
	if cfg == nil {
		return
	}
	if cfg.Classifier.ConfidenceThreshold == 0 {
		cfg.Classifier.ConfidenceThreshold = 0.65
	}
	if cfg.Classifier.EnableTieBreaker == nil {
		enabled := false
		cfg.Classifier.EnableTieBreaker = &enabled
	}
}
