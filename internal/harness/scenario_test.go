package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: smoke
description: loads
concepts:
  A:
    actions:
      go: {}
steps:
  - concept: A
    op: go
    input: {v: 1}
assertions:
  - type: trace_count
    action: A.go
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "A", scenario.Steps[0].Concept)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: has a typo
concepts:
  A:
    actions:
      go: {}
steps:
  - concept: A
    op: go
    input: {}
assertion:
  - type: trace_count
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nconcepts:\n  A:\n    actions:\n      go: {}\nsteps:\n  - {concept: A, op: go, input: {}}\n",
			wantErr: "name is required",
		},
		{
			name:    "no concepts",
			content: "name: n\nsteps:\n  - {concept: A, op: go, input: {}}\n",
			wantErr: "concepts map is required",
		},
		{
			name:    "no steps",
			content: "name: n\nconcepts:\n  A:\n    actions:\n      go: {}\n",
			wantErr: "steps list is required",
		},
		{
			name:    "step names undefined concept",
			content: "name: n\nconcepts:\n  A:\n    actions:\n      go: {}\nsteps:\n  - {concept: B, op: go, input: {}}\n",
			wantErr: `concept "B" is not defined`,
		},
		{
			name:    "unknown assertion type",
			content: "name: n\nconcepts:\n  A:\n    actions:\n      go: {}\nsteps:\n  - {concept: A, op: go, input: {}}\nassertions:\n  - type: trace_sorted\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "trace_order with one action",
			content: "name: n\nconcepts:\n  A:\n    actions:\n      go: {}\nsteps:\n  - {concept: A, op: go, input: {}}\nassertions:\n  - {type: trace_order, actions: [A.go]}\n",
			wantErr: "at least two actions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
