// Package consent asks the user to approve actions with side effects.
package consent

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// Confirmer answers yes/no questions. def is the answer for empty input.
type Confirmer interface {
	Confirm(question string, def bool) (bool, error)
}

// Static answers every question the same way.
type Static bool

func (s Static) Confirm(string, bool) (bool, error) {
	return bool(s), nil
}

// Prompter asks on out and reads answers from in, one line at a time.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(in), out: out}
}

// Confirm accepts y, yes, n and no in any case. Empty input selects def,
// anything else asks again, and end of input is a no.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	for {
		if _, err := fmt.Fprintf(p.out, "%s %s ", question, suffix); err != nil {
			return false, err
		}
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				_, _ = fmt.Fprintln(p.out)
				return false, nil
			}
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if _, err := fmt.Fprintln(p.out, "please answer y or n"); err != nil {
			return false, err
		}
	}
}

// Choose prints a numbered menu and returns the zero-based index picked.
// End of input returns -1.
func (p *Prompter) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("no options to choose from")
	}
	for {
		if _, err := fmt.Fprintln(p.out, title); err != nil {
			return -1, err
		}
		for index, option := range options {
			_, _ = fmt.Fprintf(p.out, "  %d) %s\n", index+1, option)
		}
		_, _ = fmt.Fprint(p.out, "choice: ")
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				_, _ = fmt.Fprintln(p.out)
				return -1, nil
			}
			return -1, err
		}
		choice, convErr := strconv.Atoi(line)
		if convErr == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, nil
		}
		_, _ = fmt.Fprintf(p.out, "enter a number between 1 and %d\n", len(options))
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ForTerminal prompts on stderr when stdin is a terminal and assumeYes is
// unset; otherwise every question is answered with assumeYes.
func ForTerminal(stdin *os.File, stderr io.Writer, assumeYes bool) Confirmer {
	if assumeYes || stdin == nil || !IsTerminal(stdin) {
		return Static(assumeYes)
	}
	return NewPrompter(stdin, stderr)
}

// IsTerminal reports whether file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
