package textmatch

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// tokenSplitPattern matches separator runs for tokenization. Unicode letters
// and digits are token characters so folded non-ASCII names survive intact.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var folder = cases.Fold()

// Fold lowercases text using Unicode case folding so comparisons behave for
// non-ASCII sender and asset names.
func Fold(text string) string {
	return folder.String(text)
}

// Tokenize splits text into folded tokens, filtering tokens shorter than 3
// characters.
func Tokenize(text string) []string {
	folded := Fold(text)
	raw := tokenSplitPattern.Split(folded, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if utf8.RuneCountInString(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Terms tokenizes each input in order and returns the de-duplicated union,
// preserving first-seen order.
func Terms(inputs ...string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, input := range inputs {
		for _, token := range Tokenize(input) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			terms = append(terms, token)
		}
	}
	return terms
}

// SharedWords returns how many significant words the two texts have in common.
func SharedWords(a, b string) int {
	words := make(map[string]struct{})
	for _, token := range Tokenize(a) {
		words[token] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{})
	for _, token := range Tokenize(b) {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if _, ok := words[token]; ok {
			shared++
		}
	}
	return shared
}
