package kubectl

import (
	"fmt"
	"strings"
)

// Program is the program name every accepted command must start with.
const Program = "kubectl"

// Command is a tokenized kubectl command line.
type Command struct {
	// Raw is the caller-supplied string, unmodified.
	Raw string
	// Tokens holds every token including the leading program name.
	Tokens []string
}

// Parse tokenizes command and checks that it starts with the kubectl program
// name. All failures wrap ErrMalformedCommand.
func Parse(command string) (Command, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Command{}, fmt.Errorf("%w: empty command", ErrMalformedCommand)
	}

	tokens, err := Tokenize(trimmed)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrMalformedCommand)
	}
	if tokens[0] != Program {
		return Command{}, fmt.Errorf("%w: command must start with %q, got %q", ErrMalformedCommand, Program, tokens[0])
	}

	return Command{Raw: command, Tokens: tokens}, nil
}

// Args returns the arguments passed to the kubectl binary, without the program name.
func (c Command) Args() []string {
	if len(c.Tokens) < 2 {
		return []string{}
	}
	args := make([]string, len(c.Tokens)-1)
	copy(args, c.Tokens[1:])
	return args
}

// Verb returns the first argument after the program name, or "" if there is none.
func (c Command) Verb() string {
	if len(c.Tokens) < 2 {
		return ""
	}
	return c.Tokens[1]
}

// SubVerb returns the argument following the verb, or "" if there is none.
func (c Command) SubVerb() string {
	if len(c.Tokens) < 3 {
		return ""
	}
	return c.Tokens[2]
}

// HasContextFlag reports whether the arguments already select a kubeconfig
// context. Arguments after a bare "--" are not inspected.
func (c Command) HasContextFlag() bool {
	for _, arg := range c.Args() {
		if arg == "--" {
			return false
		}
		if arg == "--context" || strings.HasPrefix(arg, "--context=") {
			return true
		}
	}
	return false
}
