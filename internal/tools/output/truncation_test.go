package output

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		maxBytes    int
		want        string
		wantWarning bool
	}{
		{name: "empty", text: "", maxBytes: 10, want: ""},
		{name: "under limit", text: "abc", maxBytes: 10, want: "abc"},
		{name: "at limit", text: "abcdefghij", maxBytes: 10, want: "abcdefghij"},
		{name: "disabled with zero", text: "abcdefghij", maxBytes: 0, want: "abcdefghij"},
		{name: "disabled with negative", text: "abcdefghij", maxBytes: -1, want: "abcdefghij"},
		{name: "hard cut without newline", text: "abcdefghij", maxBytes: 4, want: "abcd", wantWarning: true},
		{name: "cut at line boundary", text: "line1\nline2\nline3\n", maxBytes: 14, want: "line1\nline2\n", wantWarning: true},
		{name: "far newline ignored", text: "a\nbcdefghijklmnop", maxBytes: 12, want: "a\nbcdefghijk", wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warning := TruncateText(tt.text, tt.maxBytes)
			if got != tt.want {
				t.Errorf("TruncateText() = %q, want %q", got, tt.want)
			}
			if (warning != nil) != tt.wantWarning {
				t.Fatalf("warning = %v, wantWarning %v", warning, tt.wantWarning)
			}
			if warning != nil {
				if warning.Shown != len(got) || warning.Total != len(tt.text) {
					t.Errorf("warning sizes = %d/%d, want %d/%d", warning.Shown, warning.Total, len(got), len(tt.text))
				}
			}
		})
	}
}

func TestTruncateText_UTF8Boundary(t *testing.T) {
	text := strings.Repeat("é", 10) // 2 bytes each

	got, warning := TruncateText(text, 5)
	if warning == nil {
		t.Fatal("expected a warning")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if got != "éé" {
		t.Errorf("TruncateText() = %q, want %q", got, "éé")
	}
}

func TestTruncateText_WarningMessage(t *testing.T) {
	_, warning := TruncateText(strings.Repeat("x", 100), 10)
	if warning == nil {
		t.Fatal("expected a warning")
	}
	if !strings.Contains(warning.Message, "10 of 100 bytes") {
		t.Errorf("message = %q", warning.Message)
	}
}
