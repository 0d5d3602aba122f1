package output

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationWarning describes a cut made by TruncateText.
type TruncationWarning struct {
	Shown   int
	Total   int
	Message string
}

// TruncateText cuts text to at most maxBytes. The cut is moved back to the
// last line break when one is close, and never splits a UTF-8 sequence.
// A zero or negative maxBytes disables truncation.
func TruncateText(text string, maxBytes int) (string, *TruncationWarning) {
	total := len(text)
	if maxBytes <= 0 || total <= maxBytes {
		return text, nil
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	// Prefer whole lines unless that drops more than a quarter of the budget.
	if nl := strings.LastIndexByte(text[:cut], '\n'); nl >= 0 && nl+1 >= cut-maxBytes/4 {
		cut = nl + 1
	}

	return text[:cut], &TruncationWarning{
		Shown: cut,
		Total: total,
		Message: fmt.Sprintf("Output truncated. Showing %d of %d bytes. Narrow the command with a namespace, label selector (-l), field selector or -o name for complete results.",
			cut, total),
	}
}
