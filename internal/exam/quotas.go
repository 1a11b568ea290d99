package exam

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MockQuota is one section's entry in the mock-assembly table.
type MockQuota struct {
	MinQuestions int `yaml:"min_questions"`
	MaxPassages  int `yaml:"max_passages"`
}

// SectionalQuota is the exact target for a single-section test.
type SectionalQuota struct {
	Questions int `yaml:"questions"`
	Passages  int `yaml:"passages"`
}

// AssemblyConfig holds every knob the assembler reads. Defaults mirror the
// exam pattern (CLAT-style five sections, 120-minute mock); deployments can
// override the tables from a YAML file.
type AssemblyConfig struct {
	Mock      map[Section]MockQuota      `yaml:"mock"`
	Sectional map[Section]SectionalQuota `yaml:"sectional"`

	MockDurationMinutes int     `yaml:"mock_duration_minutes"`
	MockMinQuestions    int     `yaml:"mock_min_questions"` // warn threshold, not a hard floor
	MinutesPerQuestion  float64 `yaml:"minutes_per_question"`
}

func DefaultAssemblyConfig() AssemblyConfig {
	return AssemblyConfig{
		Mock: map[Section]MockQuota{
			SectionEnglish:      {MinQuestions: 24, MaxPassages: 6},
			SectionGKCA:         {MinQuestions: 28, MaxPassages: 7},
			SectionLegal:        {MinQuestions: 32, MaxPassages: 8},
			SectionLogical:      {MinQuestions: 24, MaxPassages: 6},
			SectionQuantitative: {MinQuestions: 12, MaxPassages: 4},
		},
		Sectional: map[Section]SectionalQuota{
			SectionEnglish:      {Questions: 24, Passages: 4},
			SectionGKCA:         {Questions: 28, Passages: 5},
			SectionLegal:        {Questions: 32, Passages: 6},
			SectionLogical:      {Questions: 24, Passages: 4},
			SectionQuantitative: {Questions: 12, Passages: 2},
		},
		MockDurationMinutes: 120,
		MockMinQuestions:    120,
		MinutesPerQuestion:  1.5,
	}
}

// LoadAssemblyConfig reads a YAML quota file over the defaults. Sections
// missing from the file keep their default entries; unknown sections are
// rejected so a typo cannot silently drop a section from mocks.
func LoadAssemblyConfig(path string) (AssemblyConfig, error) {
	cfg := DefaultAssemblyConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return AssemblyConfig{}, fmt.Errorf("read quota file: %w", err)
	}
	var file struct {
		Mock                map[string]MockQuota      `yaml:"mock"`
		Sectional           map[string]SectionalQuota `yaml:"sectional"`
		MockDurationMinutes int                       `yaml:"mock_duration_minutes"`
		MockMinQuestions    int                       `yaml:"mock_min_questions"`
		MinutesPerQuestion  float64                   `yaml:"minutes_per_question"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return AssemblyConfig{}, fmt.Errorf("parse quota file %s: %w", path, err)
	}
	for name, q := range file.Mock {
		sec, ok := ParseSection(name)
		if !ok {
			return AssemblyConfig{}, fmt.Errorf("quota file %s: unknown section %q", path, name)
		}
		cfg.Mock[sec] = q
	}
	for name, q := range file.Sectional {
		sec, ok := ParseSection(name)
		if !ok {
			return AssemblyConfig{}, fmt.Errorf("quota file %s: unknown section %q", path, name)
		}
		cfg.Sectional[sec] = q
	}
	if file.MockDurationMinutes > 0 {
		cfg.MockDurationMinutes = file.MockDurationMinutes
	}
	if file.MockMinQuestions > 0 {
		cfg.MockMinQuestions = file.MockMinQuestions
	}
	if file.MinutesPerQuestion > 0 {
		cfg.MinutesPerQuestion = file.MinutesPerQuestion
	}
	return cfg, nil
}
