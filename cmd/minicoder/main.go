// Command minicoder is an autonomous coding agent: give it a request and a
// working directory, and it drives a model through a bounded loop of
// exec-script iterations until the model calls agent-done, agent-abort, or
// the iteration budget runs out.
//
// Invoked under one of its four reserved basenames (agent-files, agent-cd,
// agent-done, agent-abort) it instead acts as a short-lived state-mutating
// command, called from inside a sandboxed iteration's own script.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewchambers/minicoder/agentcmd"
	"github.com/andrewchambers/minicoder/config"
	"github.com/andrewchambers/minicoder/focus"
	"github.com/andrewchambers/minicoder/iteration"
	"github.com/andrewchambers/minicoder/llm"
	"github.com/andrewchambers/minicoder/ui"
)

var version = "dev"

func getVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	os.Exit(run())
}

func run() int {
	basename := filepath.Base(os.Args[0])
	if agentcmd.IsReserved(basename) {
		return agentcmd.Run(basename, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	}
	return runCLI()
}

type cliArgs struct {
	debug         bool
	maxIterations int
	model         string
	focusArg      string
	instructions  string
}

func runCLI() int {
	var args cliArgs
	var exitCode int

	root := &cobra.Command{
		Use:           "minicoder [flags] <request>",
		Short:         "Autonomous agent that executes shell scripts to accomplish a request",
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, requestWords []string) error {
			exitCode = execute(args, strings.Join(requestWords, " "))
			return nil
		},
	}

	root.Flags().BoolVar(&args.debug, "debug", false, "Show debug output including prompts")
	root.Flags().IntVar(&args.maxIterations, "max-iterations", 50, "Maximum number of iterations")
	root.Flags().StringVar(&args.model, "model", "", "Model to use (default: catalog default)")
	root.Flags().StringVar(&args.focusArg, "focus", "", "Files or globs to focus on initially (space-separated)")
	root.Flags().StringVar(&args.instructions, "instructions", "", "Path to a file of extra instructions included in every prompt")

	if err := root.Execute(); err != nil {
		ui.NewTerminal().PrintError(err)
		return 1
	}
	return exitCode
}

func execute(args cliArgs, userRequest string) int {
	term := ui.NewTerminal()

	if args.maxIterations <= 0 {
		term.PrintError(fmt.Errorf("invalid --max-iterations: %d", args.maxIterations))
		return 1
	}

	catalog, err := config.Load()
	if err != nil {
		term.PrintError(fmt.Errorf("loading model config: %w", err))
		return 1
	}
	if len(catalog.Models) == 0 {
		term.PrintError(fmt.Errorf("no models configured; check your config file or environment variables"))
		return 1
	}

	model, ok := resolveModel(catalog, args.model)
	if !ok {
		term.PrintError(fmt.Errorf("unknown model: %s", fallback(args.model, "(default)")))
		printModelCatalog(catalog)
		return 1
	}

	extraInstructions := ""
	if args.instructions != "" {
		data, err := os.ReadFile(args.instructions)
		if err != nil {
			term.PrintError(fmt.Errorf("reading --instructions file: %w", err))
			return 1
		}
		extraInstructions = string(data)
	}

	var initialFocus []string
	if args.focusArg != "" {
		initialFocus = focus.Expand(args.focusArg)
	}

	workDir, err := os.Getwd()
	if err != nil {
		term.PrintError(fmt.Errorf("getting working directory: %w", err))
		return 1
	}

	term.PrintBanner(model.Name, workDir, getVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cancelled atomic.Bool
	go func() {
		<-ctx.Done()
		cancelled.Store(true)
	}()

	result, _ := iteration.Run(ctx, iteration.Args{
		UserRequest:       userRequest,
		WorkingDir:        workDir,
		InitialFocus:      initialFocus,
		Model:             model,
		MaxIterations:     args.maxIterations,
		Debug:             args.debug,
		ExtraInstructions: extraInstructions,
		Output:            os.Stdout,
		Client:            llm.NewClient(),
		Spinner:           ui.NewSpinner(),
		Cancelled:         cancelled.Load,
	})

	switch result {
	case iteration.Success:
		return 0
	default:
		return 1
	}
}

func resolveModel(catalog llm.Config, name string) (llm.Descriptor, bool) {
	if name == "" {
		return catalog.Default()
	}
	return catalog.Get(name)
}

func printModelCatalog(catalog llm.Config) {
	fmt.Fprintln(os.Stderr, "Configured models:")
	for _, m := range catalog.Models {
		fmt.Fprintf(os.Stderr, "  %s\n", m.Name)
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
