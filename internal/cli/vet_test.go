package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRule = `sync Relay

when
    A.send(v: x)

then
    B.recv(v: x)
`

const validManifests = `
concept: A: {
	purpose: "sender"
	action: send: args: v: int
}
concept: B: {
	purpose: "receiver"
	action: recv: args: v: int
}
`

func TestVet_CleanRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "relay.weft", validRule)

	out, err := execute(t, "vet", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 1 file(s) checked")
}

func TestVet_WithManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "relay.weft", validRule)
	manifests := writeFile(t, dir, "concepts.cue", validManifests)

	_, err := execute(t, "vet", dir, "--manifests", manifests)
	require.NoError(t, err)
}

func TestVet_ManifestViolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.weft", `sync Bad

when
    A.send(v: x)

then
    B.forward(v: x)
`)
	manifests := writeFile(t, dir, "concepts.cue", validManifests)

	out, err := execute(t, "vet", dir, "--manifests", manifests)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "not a declared action")
}

func TestVet_StructuralProblems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "unnamed.weft", "when\n    A.send(v: x)\nthen\n    B.recv(v: x)\n")
	writeFile(t, dir, "untriggered.weft", "sync Untriggered\nthen\n    B.recv(v: 1)\n")

	out, err := execute(t, "vet", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "rule has no name")
	assert.Contains(t, out, "rule has no trigger clauses")
}

func TestVet_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.weft", validRule)
	writeFile(t, dir, "b.weft", validRule)

	out, err := execute(t, "vet", dir)
	require.Error(t, err)
	assert.Contains(t, out, "duplicate rule name")
}

func TestVet_CycleWarningDoesNotFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "loop.weft", `sync Loop

when
    A.tick(v: x)

then
    A.tick(v: x)
`)

	out, err := execute(t, "vet", dir)
	require.NoError(t, err, "cycles warn, they do not fail")
	assert.Contains(t, out, "self-triggering")
}

func TestVet_MissingPath(t *testing.T) {
	_, err := execute(t, "vet", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVet_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "relay.weft", validRule)

	out, err := execute(t, "--format", "json", "vet", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"files": 1`)
}
