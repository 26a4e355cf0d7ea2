// Package segmenter splits normalized text into sentences with a heuristic
// boundary detector. It works on rune positions throughout, so multi-byte
// input never shifts a boundary check onto the wrong character.
package segmenter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTokens = 3
	minLength = 10
)

type state int

const (
	stateAccumulating state = iota
	stateEvaluate
	stateFlushOrMerge
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAccumulating:
		return "accumulating"
	case stateEvaluate:
		return "evaluate"
	case stateFlushOrMerge:
		return "flush-or-merge"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Split returns the sentences found in text, in order. It keeps no state
// between calls and is safe for concurrent use.
func Split(text string) []string {
	s := &scanner{runes: []rune(text), state: stateAccumulating}
	s.run()
	return s.sentences
}

// IsValidSentence reports whether candidate, once trimmed, has at least three
// whitespace-separated tokens, at least ten characters and is not a single
// numeric literal.
func IsValidSentence(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false
	}
	if len(strings.Fields(trimmed)) < minTokens {
		return false
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return false
	}
	return utf8.RuneCountInString(trimmed) >= minLength
}

type scanner struct {
	runes     []rune
	pos       int
	buf       strings.Builder
	sentences []string
	state     state
}

func (s *scanner) run() {
	for s.state != stateDone {
		switch s.state {
		case stateAccumulating:
			s.accumulate()
		case stateEvaluate:
			s.evaluate()
		case stateFlushOrMerge:
			s.flushOrMerge()
		}
	}
}

// accumulate appends runes to the buffer until it reaches a candidate
// terminator or runs out of input.
func (s *scanner) accumulate() {
	for s.pos < len(s.runes) {
		r := s.runes[s.pos]
		s.buf.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			s.state = stateEvaluate
			return
		}
		s.pos++
	}
	s.state = stateFlushOrMerge
}

// evaluate decides whether the terminator at pos closes a sentence. An
// invalid candidate stays in the buffer and accumulation resumes.
func (s *scanner) evaluate() {
	var boundary bool
	if s.runes[s.pos] == '.' {
		boundary = s.isPeriodBoundary(s.pos)
	} else {
		boundary = s.isExclamationBoundary(s.pos)
	}
	if boundary && IsValidSentence(s.buf.String()) {
		s.sentences = append(s.sentences, strings.TrimSpace(s.buf.String()))
		s.buf.Reset()
	}
	s.pos++
	s.state = stateAccumulating
}

// flushOrMerge handles the remainder at end of input: a valid remainder is a
// sentence of its own, an invalid one is glued onto the previous sentence,
// and with no previous sentence it is dropped.
func (s *scanner) flushOrMerge() {
	rest := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	switch {
	case rest == "":
	case IsValidSentence(rest):
		s.sentences = append(s.sentences, rest)
	case len(s.sentences) > 0:
		last := len(s.sentences) - 1
		s.sentences[last] = s.sentences[last] + " " + rest
	}
	s.state = stateDone
}

// isPeriodBoundary applies the abbreviation, decimal and ellipsis guards and
// then requires whitespace followed by an uppercase letter or a digit.
func (s *scanner) isPeriodBoundary(pos int) bool {
	if pos == 0 || pos >= len(s.runes)-1 {
		return false
	}
	prev, next := s.runes[pos-1], s.runes[pos+1]
	if unicode.IsLetter(prev) && unicode.IsLetter(next) {
		return false
	}
	if unicode.IsNumber(prev) && unicode.IsNumber(next) {
		return false
	}
	if next == '.' {
		return false
	}
	if !unicode.IsSpace(next) {
		return false
	}
	for _, r := range s.runes[pos+1:] {
		if unicode.IsSpace(r) {
			continue
		}
		return unicode.IsUpper(r) || unicode.IsNumber(r)
	}
	return false
}

// isExclamationBoundary treats '?' and '!' as closing when they end the text
// or are followed by whitespace or an uppercase letter. Quotes are not
// considered.
func (s *scanner) isExclamationBoundary(pos int) bool {
	if pos+1 >= len(s.runes) {
		return true
	}
	next := s.runes[pos+1]
	return unicode.IsSpace(next) || unicode.IsUpper(next)
}
