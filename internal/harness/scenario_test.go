package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_FromTestdata(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "gold_standard.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gold_standard", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "currency", s.Steps[0].System)
	assert.Equal(t, "MINT", s.Steps[0].Type)
	assert.Equal(t, "alice", s.Steps[0].Args["to"])
	require.Len(t, s.Assertions, 4)
	assert.NotEmpty(t, s.Definitions)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadScenario_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: [unclosed"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		wantErr  string
	}{
		{
			name:     "missing name",
			scenario: Scenario{Steps: []Step{{System: "currency", Type: "MINT"}}},
			wantErr:  "name is required",
		},
		{
			name:     "no steps",
			scenario: Scenario{Name: "x"},
			wantErr:  "at least one step",
		},
		{
			name:     "missing system",
			scenario: Scenario{Name: "x", Steps: []Step{{Type: "MINT"}}},
			wantErr:  "system is required",
		},
		{
			name:     "missing type",
			scenario: Scenario{Name: "x", Steps: []Step{{System: "currency"}}},
			wantErr:  "type is required",
		},
		{
			name:     "bad expect",
			scenario: Scenario{Name: "x", Steps: []Step{{System: "currency", Type: "MINT", Expect: "maybe"}}},
			wantErr:  "expect must be",
		},
		{
			name: "assertion without type",
			scenario: Scenario{
				Name:       "x",
				Steps:      []Step{{System: "currency", Type: "MINT"}},
				Assertions: []Assertion{{}},
			},
			wantErr: "type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
