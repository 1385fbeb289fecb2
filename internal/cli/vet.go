package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/manifest"
)

// VetResult is the payload of a vet run.
type VetResult struct {
	Files    int                     `json:"files"`
	Problems []manifest.Problem      `json:"problems,omitempty"`
	Cycles   []manifest.CycleWarning `json:"cycles,omitempty"`
}

// NewVetCommand creates the vet command.
func NewVetCommand(rootOpts *RootOptions) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "vet <rules-path>...",
		Short: "Check rule files for structural and manifest problems",
		Long: `Parse rule files and report structural problems: unnamed rules,
missing triggers, duplicate names, and potential rule cycles. With
--manifests, additionally check every referenced concept, operation,
and argument against the CUE concept manifests.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVet(rootOpts, cmd, args, manifestPath)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifests", "", "CUE concept manifest file")
	return cmd
}

func runVet(opts *RootOptions, cmd *cobra.Command, paths []string, manifestPath string) error {
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
	formatter.VerboseLog("Loaded %d rule file(s)", len(files))

	var manifests []*manifest.Manifest
	if manifestPath != "" {
		src, err := os.ReadFile(manifestPath)
		if err != nil {
			_ = formatter.Failure(err.Error(), nil)
			return WrapExitError(ExitCommandError, "read manifests", err)
		}
		manifests, err = manifest.CompileSource(string(src))
		if err != nil {
			_ = formatter.Failure(err.Error(), nil)
			return WrapExitError(ExitFailure, "compile manifests", err)
		}
		formatter.VerboseLog("Compiled %d manifest(s)", len(manifests))
	}

	rules := make([]*ir.Rule, 0, len(files))
	problems := structuralProblems(files)
	for _, f := range files {
		rules = append(rules, f.Rule)
	}

	if manifests != nil {
		problems = append(problems, manifest.Vet(manifests, rules)...)
	}
	cycles := manifest.AnalyzeCycles(rules)

	result := VetResult{Files: len(files), Problems: problems, Cycles: cycles}
	return outputVet(formatter, result)
}

// structuralProblems runs the registration-time checks the runtime would
// apply, without needing instrumented concepts.
func structuralProblems(files []RuleFile) []manifest.Problem {
	var problems []manifest.Problem
	seen := make(map[string]string)

	for _, f := range files {
		rule := f.Rule
		switch {
		case rule.Name == "":
			problems = append(problems, manifest.Problem{
				Rule:    f.Path,
				Message: "rule has no name",
			})
			continue
		case seen[rule.Name] != "":
			problems = append(problems, manifest.Problem{
				Rule:    rule.Name,
				Message: "duplicate rule name (also in " + seen[rule.Name] + ")",
			})
		default:
			seen[rule.Name] = f.Path
		}

		if len(rule.When) == 0 {
			problems = append(problems, manifest.Problem{
				Rule:    rule.Name,
				Message: "rule has no trigger clauses",
			})
		}
		for _, p := range rule.When {
			if ir.IsQueryOp(p.Op) {
				problems = append(problems, manifest.Problem{
					Rule:    rule.Name,
					Concept: p.Concept,
					Op:      p.Op,
					Message: "read operation cannot be a trigger",
				})
			}
		}
		for _, p := range rule.Then {
			if ir.IsQueryOp(p.Op) {
				problems = append(problems, manifest.Problem{
					Rule:    rule.Name,
					Concept: p.Concept,
					Op:      p.Op,
					Message: "read operation cannot be a consequent",
				})
			}
		}
	}
	return problems
}

func outputVet(formatter *OutputFormatter, result VetResult) error {
	if len(result.Problems) == 0 {
		if formatter.Format == "json" {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(formatter.Writer, "ok: %d file(s) checked\n", result.Files)
			for _, c := range result.Cycles {
				fmt.Fprintf(formatter.Writer, "warning: %s\n", c.Message)
			}
		}
		return nil
	}

	if formatter.Format == "json" {
		if err := formatter.Failure(fmt.Sprintf("%d problem(s)", len(result.Problems)), result); err != nil {
			return err
		}
	} else {
		for _, p := range result.Problems {
			fmt.Fprintln(formatter.Writer, p.String())
		}
		for _, c := range result.Cycles {
			fmt.Fprintf(formatter.Writer, "warning: %s\n", c.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("vet failed with %d problem(s)", len(result.Problems)))
}
