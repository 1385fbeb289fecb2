package cli

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/trace"
)

func seedTraceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	log, err := trace.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer log.Close()

	for seq := int64(1); seq <= 2; seq++ {
		input := ir.Object{"v": ir.Int(seq)}
		id, err := ir.RecordID("Counter", "increment", input, seq)
		require.NoError(t, err)
		log.Observe(ir.ActionRecord{
			ID:      id,
			Concept: "Counter",
			Op:      "increment",
			Input:   input,
			Output:  ir.Object{"count": ir.Int(seq)},
			Seq:     seq,
			At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}, "scope-a")
	}
	return path
}

func TestTrace_TextListing(t *testing.T) {
	path := seedTraceDB(t)

	out, err := execute(t, "trace", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Counter.increment")
	assert.Contains(t, out, "scope-a")
}

func TestTrace_ScopeFilter(t *testing.T) {
	path := seedTraceDB(t)

	out, err := execute(t, "trace", path, "--scope", "scope-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Counter.increment")

	out, err = execute(t, "trace", path, "--scope", "missing")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTrace_ScopesListing(t *testing.T) {
	path := seedTraceDB(t)

	out, err := execute(t, "trace", path, "--scopes")
	require.NoError(t, err)
	assert.Equal(t, "scope-a\n", out)
}

func TestTrace_JSONOutput(t *testing.T) {
	path := seedTraceDB(t)

	out, err := execute(t, "--format", "json", "trace", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"concept": "Counter"`)
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, err := execute(t, "trace", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
