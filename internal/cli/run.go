package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/concepts"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	ConfigPath string
	DBPath     string
	Requests   []string
	Timeout    time.Duration
}

// NewRunCommand creates the run command. It loads rule files, instruments
// the built-in demo concepts, and feeds gateway requests through the
// runtime, printing one JSON reply per request.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run rules against the built-in demo concepts",
		Long: `Run loads the given rule files (or directories of .weft files),
instruments the built-in demo concepts (Web, NonceGenerator, UrlShortening,
Counter), and performs one Web.request per request object.

Requests are JSON objects, given with --request or read line by line from
stdin. Each reply is the gateway response a rule chain produced, or the
request completion itself when no rule responded within the timeout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml)")
	cmd.Flags().StringVar(&opts.DBPath, "db", ":memory:", "shortener database path")
	cmd.Flags().StringArrayVar(&opts.Requests, "request", nil, "request JSON object (repeatable; default: read stdin)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Second, "per-request response timeout")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, rootOpts *RootOptions, opts *RunOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMaxDepth(cfg.Engine.MaxDepth),
		engine.WithMaxSteps(cfg.Engine.MaxSteps),
	}
	if cfg.Trace.Enabled {
		audit, err := trace.Open(cfg.Trace.Path, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "open trace log", err)
		}
		defer audit.Close()
		engineOpts = append(engineOpts, engine.WithObserver(audit))
	}

	shortener, err := concepts.OpenUrlShortening(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open shortener database", err)
	}
	defer shortener.Close()

	web := concepts.NewWeb()
	rt := engine.New(engineOpts...)
	wrapped := rt.Instrument(map[string]engine.Concept{
		"Web":            web,
		"NonceGenerator": concepts.NewNonceGenerator(),
		"UrlShortening":  shortener,
		"Counter":        concepts.NewCounter(),
	})

	files, err := LoadRuleFiles(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "load rules", err)
	}
	for _, f := range files {
		if err := rt.Register(f.Rule); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("register %s", f.Path), err)
		}
		logger.Info("rule registered", "rule", f.Rule.Name, "file", f.Path)
	}

	requests, err := collectRequests(cmd, opts)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	var replies []json.RawMessage
	for i, input := range requests {
		reply, err := serveRequest(cmd.Context(), wrapped["Web"], web, input, opts.Timeout)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("request %d", i), err)
		}
		raw, err := ir.MarshalValue(reply)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("encode reply %d", i), err)
		}
		if rootOpts.Format == "json" {
			replies = append(replies, raw)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		}
	}

	if rootOpts.Format == "json" {
		return formatter.Success(map[string]any{"replies": replies})
	}
	return nil
}

// serveRequest performs one gateway request and waits for the response a
// rule chain buffered. Dispatch is depth-first on the calling goroutine,
// so a response, if any, is normally present before Perform returns; the
// timeout only covers rules that never respond.
func serveRequest(ctx context.Context, gateway engine.Concept, web *concepts.Web, input ir.Object, timeout time.Duration) (ir.Object, error) {
	out, err := gateway.Perform(ctx, "request", input)
	if err != nil {
		return nil, err
	}

	token, ok := out["request"].(ir.String)
	if !ok {
		return out, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	body, err := web.Await(waitCtx, string(token))
	if err != nil {
		// No rule responded; the request completion is the reply.
		return out, nil
	}
	return body, nil
}

func collectRequests(cmd *cobra.Command, opts *RunOptions) ([]ir.Object, error) {
	lines := opts.Requests
	if len(lines) == 0 {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, WrapExitError(ExitCommandError, "read requests", err)
		}
	}

	requests := make([]ir.Object, 0, len(lines))
	for i, line := range lines {
		var obj ir.Object
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parse request %d", i), err)
		}
		requests = append(requests, obj)
	}
	return requests, nil
}
