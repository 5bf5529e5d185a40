// Package ui provides the CLI's startup banner, error/warning printing, and
// the "Thinking..." spinner shown while waiting on a model response.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Terminal formats the CLI's own chrome (banner, errors, warnings). It
// never touches the iteration loop's own output, which must stay
// byte-exact regardless of whether colorized output is enabled.
type Terminal struct {
	cyan   func(a ...any) string
	white  func(a ...any) string
	gray   func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
}

// NewTerminal builds a Terminal. Coloring automatically no-ops on
// non-TTY targets via fatih/color's own os.Stdout.Fd() detection, layered
// on top of an explicit ModeCharDevice check so redirected output never
// carries escape codes either way.
func NewTerminal() *Terminal {
	if !isTerminal() {
		color.NoColor = true
	}
	return &Terminal{
		cyan:   color.New(color.FgCyan, color.Bold).SprintFunc(),
		white:  color.New(color.FgWhite, color.Bold).SprintFunc(),
		gray:   color.New(color.FgHiBlack).SprintFunc(),
		red:    color.New(color.FgRed, color.Bold).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
	}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// PrintBanner prints the startup banner identifying the model and working
// directory for the run about to begin.
func (t *Terminal) PrintBanner(model, workDir, version string) {
	fmt.Println(t.cyan("minicoder") + t.gray(" "+version))
	fmt.Println(t.gray("  model: ") + t.white(model))
	fmt.Println(t.gray("  dir:   ") + t.white(workDir))
	fmt.Println()
}

// PrintError prints a fatal error to stderr.
func (t *Terminal) PrintError(err error) {
	fmt.Fprintln(os.Stderr, t.red("Error: ")+err.Error())
}

// PrintWarning prints a non-fatal warning to stderr.
func (t *Terminal) PrintWarning(msg string) {
	fmt.Fprintln(os.Stderr, t.yellow("Warning: ")+msg)
}
