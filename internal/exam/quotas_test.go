package exam

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQuotaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultAssemblyConfig(t *testing.T) {
	cfg := DefaultAssemblyConfig()

	assert.Len(t, cfg.Mock, len(Sections))
	assert.Len(t, cfg.Sectional, len(Sections))
	assert.Equal(t, 120, cfg.MockDurationMinutes)
	assert.Equal(t, 120, cfg.MockMinQuestions)
	assert.Equal(t, 1.5, cfg.MinutesPerQuestion)

	assert.Equal(t, MockQuota{MinQuestions: 32, MaxPassages: 8}, cfg.Mock[SectionLegal])
	assert.Equal(t, SectionalQuota{Questions: 12, Passages: 2}, cfg.Sectional[SectionQuantitative])

	// The mock table sums to the advertised minimum.
	total := 0
	for _, q := range cfg.Mock {
		total += q.MinQuestions
	}
	assert.Equal(t, cfg.MockMinQuestions, total)
}

func TestLoadAssemblyConfigEmptyPath(t *testing.T) {
	cfg, err := LoadAssemblyConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAssemblyConfig(), cfg)
}

func TestLoadAssemblyConfigOverride(t *testing.T) {
	path := writeQuotaFile(t, `
mock:
  ENGLISH:
    min_questions: 30
    max_passages: 8
sectional:
  QUANTITATIVE_TECHNIQUES:
    questions: 20
    passages: 4
mock_duration_minutes: 150
`)

	cfg, err := LoadAssemblyConfig(path)
	require.NoError(t, err)

	// Overridden entries take effect.
	assert.Equal(t, MockQuota{MinQuestions: 30, MaxPassages: 8}, cfg.Mock[SectionEnglish])
	assert.Equal(t, SectionalQuota{Questions: 20, Passages: 4}, cfg.Sectional[SectionQuantitative])
	assert.Equal(t, 150, cfg.MockDurationMinutes)

	// Everything else keeps its default.
	assert.Equal(t, MockQuota{MinQuestions: 32, MaxPassages: 8}, cfg.Mock[SectionLegal])
	assert.Equal(t, SectionalQuota{Questions: 24, Passages: 4}, cfg.Sectional[SectionEnglish])
	assert.Equal(t, 120, cfg.MockMinQuestions)
	assert.Equal(t, 1.5, cfg.MinutesPerQuestion)
}

func TestLoadAssemblyConfigUnknownSection(t *testing.T) {
	path := writeQuotaFile(t, `
mock:
  HISTORY:
    min_questions: 10
    max_passages: 2
`)

	_, err := LoadAssemblyConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY")
}

func TestLoadAssemblyConfigMissingFile(t *testing.T) {
	_, err := LoadAssemblyConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadAssemblyConfigBadYAML(t *testing.T) {
	path := writeQuotaFile(t, "mock: [not a map")
	_, err := LoadAssemblyConfig(path)
	assert.Error(t, err)
}
