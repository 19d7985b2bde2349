package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Rule separates the phases of a run
var Rule = strings.Repeat("=", 60)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

func plain(text string) string { return text }

// Console writes user-facing lines. Color is enabled only when the writer is
// a terminal.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	quiet bool
	tally Tally
}

// NewConsole creates a console writing to out
func NewConsole(out io.Writer) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Console{out: out, color: color}
}

// SetColor forces color on or off
func (c *Console) SetColor(enabled bool) {
	c.mu.Lock()
	c.color = enabled
	c.mu.Unlock()
}

// SetQuiet suppresses per-item lines; summaries and errors still print
func (c *Console) SetQuiet(quiet bool) {
	c.mu.Lock()
	c.quiet = quiet
	c.mu.Unlock()
}

func (c *Console) paint(fn func(string) string) func(string) string {
	if c.color {
		return fn
	}
	return plain
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) detail(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, text)
}

// Printf writes a formatted line
func (c *Console) Printf(format string, args ...interface{}) {
	c.println(fmt.Sprintf(format, args...))
}

// PrintRule prints the section separator
func (c *Console) PrintRule() {
	c.println(Rule)
}

// PrintError prints an error message in red
func (c *Console) PrintError(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	c.println(c.paint(Red)(msg))
}

// PrintSuccess prints a success message in green
func (c *Console) PrintSuccess(msg string) {
	c.println(c.paint(Green)(msg))
}

// PrintInfo prints a label and value
func (c *Console) PrintInfo(label, value string) {
	c.println(fmt.Sprintf("%s: %s", c.paint(Cyan)(label), c.paint(Yellow)(value)))
}

// PrintWarning prints a warning message in yellow
func (c *Console) PrintWarning(msg string) {
	c.println(c.paint(Yellow)(msg))
}

// PrintHighlight prints a highlighted message in magenta
func (c *Console) PrintHighlight(msg string) {
	c.println(c.paint(Magenta)(msg))
}
