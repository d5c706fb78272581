package remedy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks the operator a yes-or-no question. Only "y" and "yes"
// count as consent.
type Confirmer interface {
	Confirm(prompt string) bool
}

// TerminalConfirmer prompts on the terminal. When stdin is not a
// terminal every question is declined: hands-off runs must opt in with
// the mode made for them instead of inheriting consent from a pipe.
type TerminalConfirmer struct {
	scanner *bufio.Scanner
	out     io.Writer
	tty     func() bool
}

func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		tty:     func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func (c *TerminalConfirmer) Confirm(prompt string) bool {
	if !c.tty() {
		fmt.Fprintf(c.out, "%s [y/N]: n (stdin is not a terminal)\n", prompt)
		return false
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	if !c.scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(c.scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
