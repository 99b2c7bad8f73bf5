// Package prompt provides interactive input for the CLI. All
// interactive loops in the core go through the Prompter interface so
// tests can script answers instead of reading real standard input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks the operator a question and returns the raw answer
// line, without the trailing newline.
type Prompter interface {
	Ask(question string) (string, error)
}

// Stdio is a Prompter backed by a reader/writer pair, normally
// stdin/stdout.
type Stdio struct {
	r *bufio.Reader
	w io.Writer
}

// NewStdio returns a Prompter reading from r and printing questions to w.
func NewStdio(r io.Reader, w io.Writer) *Stdio {
	return &Stdio{r: bufio.NewReader(r), w: w}
}

// Default returns a Prompter wired to os.Stdin and os.Stdout.
func Default() *Stdio {
	return NewStdio(os.Stdin, os.Stdout)
}

func (s *Stdio) Ask(question string) (string, error) {
	fmt.Fprint(s.w, question)
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// yesAnswers are the answers accepted as confirmation, matched
// case-insensitively.
var yesAnswers = map[string]bool{
	"y": true, "yes": true, "ja": true, "si": true, "oui": true,
}

// Confirm asks a yes/no question. If defaultYes is true an empty
// answer counts as yes.
func Confirm(p Prompter, question string, defaultYes bool) (bool, error) {
	answer, err := p.Ask(question)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return defaultYes, nil
	}
	return yesAnswers[answer], nil
}

// Script is a Prompter for tests that replays canned answers in order.
type Script struct {
	Answers []string
	// Asked records every question in the order it was asked.
	Asked []string
	next  int
}

func (s *Script) Ask(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if s.next >= len(s.Answers) {
		return "", io.EOF
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}
