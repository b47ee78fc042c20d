package conditions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ScriptedSource replays a pre-recorded answer list such as
// "NFT Owner|or|Timelock". The builder continues while answers remain.
type ScriptedSource struct {
	answers []string
}

func NewScriptedSource(answers ...string) *ScriptedSource {
	return &ScriptedSource{answers: answers}
}

// ParseScript splits a '|' separated script, trimming blanks.
func ParseScript(script string) *ScriptedSource {
	var answers []string
	for _, part := range strings.Split(script, "|") {
		if part = strings.TrimSpace(part); part != "" {
			answers = append(answers, part)
		}
	}
	return NewScriptedSource(answers...)
}

func (s *ScriptedSource) next() (string, error) {
	if len(s.answers) == 0 {
		return "", ErrScriptExhausted
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func (s *ScriptedSource) SelectPredicate(ctx context.Context, remaining []string) (string, error) {
	return s.next()
}

func (s *ScriptedSource) Continue(ctx context.Context) (bool, error) {
	return len(s.answers) > 0, nil
}

func (s *ScriptedSource) ChooseCombinator(ctx context.Context) (Combinator, error) {
	answer, err := s.next()
	if err != nil {
		return "", err
	}
	return ParseCombinator(answer)
}

// PromptSource asks an operator on a line based terminal.
type PromptSource struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPromptSource(in io.Reader, out io.Writer) *PromptSource {
	return &PromptSource{in: bufio.NewScanner(in), out: out}
}

func (ps *PromptSource) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ps.in.Scan() {
		if err := ps.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(ps.in.Text()), nil
}

// SelectPredicate accepts either the listed number or the exact name.
func (ps *PromptSource) SelectPredicate(ctx context.Context, remaining []string) (string, error) {
	fmt.Fprintln(ps.out, "Select an access control condition:")
	for i, name := range remaining {
		fmt.Fprintf(ps.out, "  %d) %s\n", i+1, name)
	}
	fmt.Fprint(ps.out, "> ")

	line, err := ps.readLine(ctx)
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(remaining) {
		return remaining[n-1], nil
	}
	return line, nil
}

func (ps *PromptSource) Continue(ctx context.Context) (bool, error) {
	fmt.Fprint(ps.out, "Do you want to add another condition? [y/N] ")
	line, err := ps.readLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (ps *PromptSource) ChooseCombinator(ctx context.Context) (Combinator, error) {
	fmt.Fprint(ps.out, "Select a logical operator to combine conditions [AND/OR]: ")
	line, err := ps.readLine(ctx)
	if err != nil {
		return "", err
	}
	return ParseCombinator(line)
}
