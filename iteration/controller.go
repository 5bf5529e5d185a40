// Package iteration drives the bounded agent loop: for each turn it builds
// a prompt from the current Agent state, streams a completion from the
// model, extracts an "exec" script from the response, runs it in a fresh
// sandbox, and folds the result back into state for the next turn.
package iteration

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/andrewchambers/minicoder/llm"
	"github.com/andrewchambers/minicoder/prompt"
	"github.com/andrewchambers/minicoder/sandbox"
	"github.com/andrewchambers/minicoder/script"
	"github.com/andrewchambers/minicoder/state"
)

// Result is the terminal outcome of a Run call.
type Result int

const (
	Success Result = iota
	Aborted
	MaxIterations
	Cancelled
	Error
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Aborted:
		return "aborted"
	case MaxIterations:
		return "max_iterations"
	case Cancelled:
		return "cancelled"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Spinner controls a visual "thinking" indicator while waiting on the
// model. Implementations must be safe to Start/Stop repeatedly and
// redundantly.
type Spinner interface {
	Start(message string)
	Stop()
}

type noopSpinner struct{}

func (noopSpinner) Start(string) {}
func (noopSpinner) Stop()        {}

// Args configures a single Run invocation.
type Args struct {
	UserRequest       string
	WorkingDir        string
	InitialFocus      []string
	Model             llm.Descriptor
	MaxIterations     int
	Debug             bool
	ExtraInstructions string

	Output  io.Writer
	Client  *llm.Client
	Spinner Spinner
	// Cancelled, when non-nil, is polled once at the top of every
	// iteration and forwarded to the LLM call so a mid-stream cancel
	// also takes effect.
	Cancelled func() bool
}

// Run executes the bounded agent loop described by args and returns its
// terminal Result along with the final Agent state (so callers can
// inspect DoneMessage/AbortMessage).
func Run(ctx context.Context, args Args) (Result, *state.Agent) {
	out := args.Output
	if out == nil {
		out = io.Discard
	}
	spinner := args.Spinner
	if spinner == nil {
		spinner = noopSpinner{}
	}

	agentState := state.New(args.WorkingDir)
	agentState.FocusedFiles = append([]string(nil), args.InitialFocus...)

	runID := uuid.New().String()
	if args.Debug {
		fmt.Fprintf(out, "[debug] run %s model=%s max_iterations=%d\n", runID, args.Model.Name, args.MaxIterations)
	}

	systemPromptSize := len(prompt.Build(prompt.BuildArgs{
		UserRequest:       args.UserRequest,
		WorkingDir:        agentState.WorkingDir,
		FocusedFiles:      "(none)",
		History:           "",
		ExtraInstructions: args.ExtraInstructions,
	}))

	for !agentState.Done && !agentState.Aborted && agentState.Iteration < args.MaxIterations {
		if args.Cancelled != nil && args.Cancelled() {
			fmt.Fprint(out, "\n=== Cancelled ===\n")
			return Cancelled, agentState
		}

		agentState.Iteration++
		var iterationSB strings.Builder

		if args.Model.MaxTokens == 0 {
			fmt.Fprintf(out, "Error: Model '%s' does not specify max_tokens\n", args.Model.Name)
			return Error, agentState
		}

		maxContextBytes := int(float64(args.Model.MaxTokens) * 4 * 0.9 / 2)
		safetyMargin := maxContextBytes * 20 / 100
		availableBytes := maxContextBytes - systemPromptSize - safetyMargin
		focusedFilesBudget := availableBytes * 40 / 100
		initialHistoryBudget := availableBytes * 60 / 100

		focusedFilesFull := "(none)"
		focusedFiles := "(none)"
		focusedFilesActualSize := len("(none)")

		if len(agentState.FocusedFiles) > 0 {
			focusedFilesFull = prompt.FocusedFilesContent(agentState.FocusedFiles)
			focusedFilesActualSize = len(focusedFilesFull)
			if focusedFilesActualSize > focusedFilesBudget {
				focusedFiles = prompt.TruncateText(focusedFilesFull, focusedFilesBudget, prompt.TruncatedFocusedFilesNote)
				focusedFilesActualSize = len(focusedFiles)
			} else {
				focusedFiles = focusedFilesFull
			}
		}

		unusedFilesBudget := focusedFilesBudget - focusedFilesActualSize
		historyBudget := initialHistoryBudget + unusedFilesBudget
		history := prompt.TruncateHistory(agentState.PrevIteration, historyBudget)

		promptText := prompt.Build(prompt.BuildArgs{
			UserRequest:       args.UserRequest,
			WorkingDir:        agentState.WorkingDir,
			FocusedFiles:      focusedFiles,
			History:           history,
			ExtraInstructions: args.ExtraInstructions,
		})

		var header string
		if agentState.Iteration > 1 {
			header = fmt.Sprintf("\n=== Iteration %d ===\n", agentState.Iteration)
		} else {
			header = fmt.Sprintf("=== Iteration %d ===\n", agentState.Iteration)
		}
		fmt.Fprint(out, header)
		iterationSB.WriteString(header)

		if args.Debug {
			fmt.Fprint(out, "\n--- DEBUG: Context management ---\n")
			fmt.Fprintf(out, "Model context limit: %d bytes\n", maxContextBytes)
			fmt.Fprintf(out, "Base prompt size: %d bytes\n", systemPromptSize)
			fmt.Fprintf(out, "Available for content: %d bytes\n", availableBytes)
			fmt.Fprintf(out, "Focused files size: %d bytes (budget: %d, used: %d)\n",
				len(focusedFilesFull), focusedFilesBudget, focusedFilesActualSize)
			fmt.Fprintf(out, "Previous iteration size: %d bytes (initial budget: %d, extended budget: %d)\n",
				len(agentState.PrevIteration), initialHistoryBudget, historyBudget)
			fmt.Fprint(out, "\n--- DEBUG: Prompt sent to LLM ---\n")
			fmt.Fprintf(out, "%s\n", promptText)
			fmt.Fprint(out, "--- END DEBUG ---\n")
		}

		spinner.Start("Thinking...")

		fmt.Fprint(out, "Agent:\n")
		iterationSB.WriteString("Agent:\n")

		cb := &outputCallback{out: out, spinner: spinner}
		response, err := args.Client.Complete(ctx, args.Model, promptText, llm.Options{
			OnChunk:   cb.onChunk,
			Cancelled: args.Cancelled,
		})
		spinner.Stop()

		if err != nil {
			if err == llm.ErrCancelled {
				fmt.Fprint(out, "\n=== Cancelled ===\n")
				return Cancelled, agentState
			}
			fmt.Fprintf(out, "Error: Failed to get model response: %s\n", err)
			return Error, agentState
		}

		if cb.lastChar != '\n' && cb.lastChar != 0 {
			fmt.Fprint(out, "\n")
		}
		iterationSB.WriteString(response)
		if len(response) > 0 && response[len(response)-1] != '\n' {
			iterationSB.WriteString("\n")
		}

		if execScript, ok := script.Extract(response); ok {
			const executingMessage = "Executing agent script...\n"
			fmt.Fprint(out, executingMessage)
			iterationSB.WriteString(executingMessage)

			scriptOutput := sandbox.Execute(execScript, agentState, out)
			iterationSB.WriteString(scriptOutput)
		}

		agentState.PrevIteration = iterationSB.String()
	}

	if agentState.Done {
		fmt.Fprint(out, "\n=== Success ===\n")
		if agentState.DoneMessage != "" {
			fmt.Fprintf(out, "\n%s\n", agentState.DoneMessage)
		}
		return Success, agentState
	}
	if agentState.Aborted {
		fmt.Fprint(out, "\n=== Abort ===\n")
		if agentState.AbortMessage != "" {
			fmt.Fprintf(out, "\n%s\n", agentState.AbortMessage)
		}
		return Aborted, agentState
	}

	fmt.Fprintf(out, "\n=== Iteration Limit Exceeded ===\n\n[Stopped after %d iterations]\n", args.MaxIterations)
	return MaxIterations, agentState
}

// outputCallback implements the reasoning/content newline-transition state
// machine: a blank line is inserted before the first reasoning chunk, and
// between reasoning and content only if reasoning didn't already end in a
// newline. The underlying spinner is stopped on the first chunk of either
// kind, since a streaming response is now underway.
type outputCallback struct {
	out            io.Writer
	spinner        Spinner
	spinnerStopped bool
	reasoningShown bool
	responseShown  bool
	lastChar       byte
}

func (c *outputCallback) onChunk(text string, kind llm.ChunkKind) {
	if text == "" {
		return
	}
	if !c.spinnerStopped {
		c.spinner.Stop()
		c.spinnerStopped = true
	}

	switch kind {
	case llm.Reasoning:
		if !c.reasoningShown {
			fmt.Fprint(c.out, "\n")
			c.reasoningShown = true
			c.lastChar = '\n'
		}
		fmt.Fprint(c.out, text)
		c.lastChar = text[len(text)-1]
	case llm.Content:
		if !c.responseShown {
			if c.reasoningShown && c.lastChar != '\n' {
				fmt.Fprint(c.out, "\n")
				c.lastChar = '\n'
			}
			c.responseShown = true
		}
		fmt.Fprint(c.out, text)
		c.lastChar = text[len(text)-1]
	}
}
