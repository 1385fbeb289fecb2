package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/parser"
)

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	var write bool
	var check bool

	cmd := &cobra.Command{
		Use:   "fmt <rules-path>...",
		Short: "Canonically reformat rule files",
		Long: `Parse rule files and re-serialize them in canonical form: four-space
indentation, one clause per line, sections separated by blank lines.
By default the formatted text goes to stdout; --write rewrites the
files in place, --check only reports files that would change.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(rootOpts, cmd, args, write, check)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place")
	cmd.Flags().BoolVar(&check, "check", false, "exit nonzero if any file is not canonical")
	return cmd
}

func runFmt(opts *RootOptions, cmd *cobra.Command, paths []string, write, check bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := LoadRuleFiles(paths)
	if err != nil {
		_ = formatter.Failure(err.Error(), nil)
		return WrapExitError(ExitCommandError, "load rules", err)
	}

	var changed []string
	for _, f := range files {
		original, err := os.ReadFile(f.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "read "+f.Path, err)
		}
		canonical := parser.Format(f.Rule)

		if string(original) == canonical {
			continue
		}
		changed = append(changed, f.Path)

		switch {
		case write:
			if err := os.WriteFile(f.Path, []byte(canonical), 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write "+f.Path, err)
			}
			formatter.VerboseLog("rewrote %s", f.Path)
		case check:
			// Reported below.
		default:
			fmt.Fprint(formatter.Writer, canonical)
		}
	}

	if check && len(changed) > 0 {
		for _, path := range changed {
			fmt.Fprintln(formatter.Writer, path)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) not canonical", len(changed)))
	}
	return nil
}
