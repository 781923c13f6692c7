package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks for the manual "retry polling" decision on a line-based input
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter reading answers from in and writing questions to out
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

type answer struct {
	line string
	err  error
}

// AwaitRetry blocks until the user answers. An empty answer or y/yes means
// retry; end of input means no. The pending read is abandoned if ctx ends.
func (p *LinePrompter) AwaitRetry(ctx context.Context) (bool, error) {
	fmt.Fprint(p.out, "Retry polling? [Y/n] ")

	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", a.err)
		}
		if errors.Is(a.err, io.EOF) && a.line == "" {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "", "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
