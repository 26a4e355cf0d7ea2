package normalizer

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain sentence", "The cat sat.", "The cat sat."},
		{"punctuation removed", "Hello, world! (really?)", "Hello world! really?"},
		{"apostrophe deleted not replaced", "don't stop", "dont stop"},
		{"only noise", "@@@###", ""},
		{"surrounding whitespace", "  \tpadded text \r", "padded text"},
		{"inner tabs kept", "a\tb", "a\tb"},
		{"non ascii letters dropped", "café naïve", "caf nave"},
		{"digits and dots kept", "Pi is 3.14159!", "Pi is 3.14159!"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			if got != tc.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The cat sat. The dog ran.",
		"«Quoted» text — with dashes, commas; and colons: done!",
		"   @@@###   ",
		"tabs\tand\nnewlines\n",
		"日本語 mixed with ASCII 123.",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeDeletionOnly(t *testing.T) {
	in := "Ünïcode, punctuation; & symbols #1 — plus 42.5% growth?!"
	out := Normalize(in)
	for _, r := range out {
		if !Allowed(r) {
			t.Errorf("output contains disallowed rune %q", r)
		}
		if !strings.ContainsRune(in, r) {
			t.Errorf("output introduced rune %q not present in input", r)
		}
	}
}
