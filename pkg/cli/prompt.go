package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/priority-manager/pkg/model"
)

// prompter asks questions on a line-oriented stream. Invalid answers are
// asked again; running out of input is an error.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no answer for %q: %w", label, io.ErrUnexpectedEOF)
		}
		return "", err
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// String asks for free text.
func (p *prompter) String(label, def string) (string, error) {
	return p.ask(label, def)
}

// Int asks until the answer is an integer.
func (p *prompter) Int(label string) (int, error) {
	for {
		answer, err := p.ask(label, "")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "Error: '%s' is not a valid integer.\n", answer)
	}
}

// Date asks until the answer is a YYYY-MM-DD date or the "no due date"
// marker.
func (p *prompter) Date(label, def string) (string, error) {
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(answer, model.NoDueDate) {
			return model.NoDueDate, nil
		}
		if _, err := time.Parse(time.DateOnly, answer); err == nil {
			return answer, nil
		}
		fmt.Fprintf(p.out, "Error: '%s' is not a date in YYYY-MM-DD format.\n", answer)
	}
}

// Choice asks until the answer is one of options, matched
// case-insensitively. A 1-based option number is accepted too.
func (p *prompter) Choice(label string, options []string, def string) (string, error) {
	for {
		answer, err := p.ask(fmt.Sprintf("%s (%s)", label, strings.Join(options, ", ")), def)
		if err != nil {
			return "", err
		}
		for _, o := range options {
			if strings.EqualFold(o, answer) {
				return o, nil
			}
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		fmt.Fprintf(p.out, "Error: '%s' is not one of %s.\n", answer, strings.Join(options, ", "))
	}
}
