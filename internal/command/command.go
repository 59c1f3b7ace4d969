// Package command assembles checker invocations as argv slices.
//
// Invocations are built structurally (prefix + global options + flags +
// subcommand + options) instead of by string concatenation, so option
// values containing spaces never need shell quoting on the way out.
package command

import (
	"fmt"
	"strings"
)

// Builder holds the invocation prefix shared by every subcommand: the
// client executable plus the optional binary and typeshed overrides.
type Builder struct {
	prefix []string
}

func NewBuilder(client, binaryOverride, typeshedOverride string) *Builder {
	if client == "" {
		client = "pyre"
	}
	prefix := []string{client}
	if binaryOverride != "" {
		prefix = append(prefix, "--binary", binaryOverride)
	}
	if typeshedOverride != "" {
		prefix = append(prefix, "--typeshed", typeshedOverride)
	}
	return &Builder{prefix: prefix}
}

// Build produces the argv for one subcommand. globalOptions and flags go
// before the subcommand (client-level), options after it (subcommand-level),
// matching the checker's CLI grammar.
func (b *Builder) Build(subcommand string, globalOptions, flags, options []string) []string {
	argv := make([]string, 0, len(b.prefix)+len(globalOptions)+len(flags)+1+len(options))
	argv = append(argv, b.prefix...)
	argv = append(argv, globalOptions...)
	argv = append(argv, flags...)
	argv = append(argv, subcommand)
	argv = append(argv, options...)
	return argv
}

// SplitOptions splits a legacy single-string option list into argv words.
// Single and double quotes group words; there is no escape processing
// beyond that. An unterminated quote is an error.
func SplitOptions(s string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %q quote in options %q", quote, s)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
