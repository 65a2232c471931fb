// Package moderation censors configured words in routed message text.
// Matching runs on a normalized view of the input (lowercased, common
// substitutions folded, separators dropped) so spaced-out or leet
// variants of a listed word are still caught.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// substitutions folds look-alike characters onto the letter they imitate.
var substitutions = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// word list. An empty list is rejected; use NewPassthrough when
// moderation is disabled.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm, _ := normalize(w); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(patterns), "replacement", string(replacement))
	return &Moderator{matcher: machine, replacement: replacement, log: log}, nil
}

// NewPassthrough returns a moderator that leaves every message untouched.
func NewPassthrough() *Moderator {
	return &Moderator{}
}

// Censor replaces every matched span of the input with the replacement
// rune. Spacing and punctuation inside a span are overwritten too, so
// the censored region has the same length as the original.
func (m *Moderator) Censor(text string) string {
	if m.matcher == nil {
		return text
	}

	normalized, origIdx := normalize(text)
	if len(normalized) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return text
	}

	out := []rune(text)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			out[i] = m.replacement
		}
	}
	return string(out)
}

// normalize lowercases, folds substitutions and drops separator runes.
// origIdx maps each normalized rune back to its position in the input
// so matched spans can be located in the original text.
func normalize(input string) (normalized []rune, origIdx []int) {
	runes := []rune(input)
	normalized = make([]rune, 0, len(runes))
	origIdx = make([]int, 0, len(runes))

	for i, r := range runes {
		if folded, ok := substitutions[r]; ok {
			r = folded
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}
