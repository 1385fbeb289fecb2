package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/trace"
)

// TraceEntry is one completion as exposed by the trace command.
type TraceEntry struct {
	Seq     int64     `json:"seq"`
	Scope   string    `json:"scope"`
	Concept string    `json:"concept"`
	Op      string    `json:"op"`
	Input   ir.Object `json:"input"`
	Output  ir.Object `json:"output"`
	At      string    `json:"at"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var scope string
	var listScopes bool

	cmd := &cobra.Command{
		Use:   "trace <db-path>",
		Short: "Dump the completion audit log",
		Long: `Read the audit database and print settled completions in
deterministic order. --scope restricts output to one dispatch scope;
--scopes lists the recorded scope tokens instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, cmd, args[0], scope, listScopes)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "restrict to one scope token")
	cmd.Flags().BoolVar(&listScopes, "scopes", false, "list scope tokens only")
	return cmd
}

func runTrace(opts *RootOptions, cmd *cobra.Command, dbPath, scope string, listScopes bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dbPath); err != nil {
		_ = formatter.Failure(err.Error(), nil)
		return WrapExitError(ExitCommandError, "open trace database", err)
	}

	log, err := trace.Open(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		_ = formatter.Failure(err.Error(), nil)
		return WrapExitError(ExitCommandError, "open trace database", err)
	}
	defer log.Close()

	ctx := cmd.Context()

	if listScopes {
		scopes, err := log.Scopes(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "read scopes", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(scopes)
		}
		for _, s := range scopes {
			fmt.Fprintln(formatter.Writer, s)
		}
		return nil
	}

	var entries []trace.Entry
	if scope != "" {
		entries, err = log.ReadScope(ctx, scope)
	} else {
		entries, err = log.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read completions", err)
	}

	out := make([]TraceEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, TraceEntry{
			Seq:     e.Seq,
			Scope:   e.Scope,
			Concept: e.Concept,
			Op:      e.Op,
			Input:   e.Input,
			Output:  e.Output,
			At:      e.At.Format(time.RFC3339Nano),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	for _, e := range out {
		fmt.Fprintf(formatter.Writer, "%6d  %s  %s.%s\n", e.Seq, e.Scope, e.Concept, e.Op)
	}
	return nil
}
