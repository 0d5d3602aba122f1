package kubectl

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote is returned by Tokenize when a quote is opened but never closed.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Tokenize splits a command string into arguments.
//
// Tokens are separated by whitespace. A single or double quote starts a quoted
// section that ends at the next matching quote; whitespace inside it does not
// split the token and the quote characters themselves are dropped. Quoted and
// unquoted text adjacent to each other form one token, so `-o='json'` yields
// `-o=json`. There are no escape sequences and no other shell syntax: `;`, `|`,
// `&&`, `$(...)` and redirections are ordinary characters.
func Tokenize(command string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quote   rune
	)

	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, ErrUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
