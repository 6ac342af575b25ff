package textmatch_test

import (
	"testing"

	"pigeonhole/internal/textmatch"
)

func TestMatchExactSubstringScoresOne(t *testing.T) {
	cases := []struct {
		name    string
		keyword string
		text    string
	}{
		{"plain", "alpha", "Q4 Alpha Fund Report"},
		{"mixed case", "ALPHA FUND", "quarterly alpha fund statement"},
		{"embedded", "fund", "refunding notice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := textmatch.Match(tc.keyword, tc.text, textmatch.Config{})
			if res.Score != 1.0 {
				t.Fatalf("expected score 1.0, got %v", res.Score)
			}
			if !res.Exact {
				t.Fatal("expected exact match")
			}
		})
	}
}

func TestMatchFuzzyAboveExactThresholdIsExactEquivalent(t *testing.T) {
	// "alphaa" vs token "alpha": distance 1 over length 6 => 0.833, below 0.9.
	// "statemant" vs "statement": distance 1 over length 9 => 0.888..., still below.
	// "statements" vs "statement": distance 1 over length 10 => 0.9.
	res := textmatch.Match("statements", "annual statement enclosed", textmatch.Config{})
	if res.Score < 0.9 {
		t.Fatalf("expected score >= 0.9, got %v", res.Score)
	}
	if !res.Exact {
		t.Fatalf("expected exact-equivalent promotion at %v", res.Score)
	}
}

func TestMatchBelowPartialThresholdIsNoMatch(t *testing.T) {
	res := textmatch.Match("alpha", "zzz qqq vvv", textmatch.Config{})
	if res.Score != 0 || res.Token != "" || res.Exact {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

func TestMatchScoreNonIncreasingWithEditDistance(t *testing.T) {
	cfg := textmatch.Config{PartialThreshold: 0.01}
	variants := []string{"statement", "statemant", "statemunt", "statxmunt"}
	prev := 2.0
	for _, variant := range variants {
		res := textmatch.Match("statement", variant, cfg)
		if res.Score > prev {
			t.Fatalf("score increased from %v to %v at %q", prev, res.Score, variant)
		}
		prev = res.Score
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	if res := textmatch.Match("", "text", textmatch.Config{}); res.Score != 0 {
		t.Fatalf("expected no match for empty keyword, got %+v", res)
	}
	if res := textmatch.Match("keyword", "   ", textmatch.Config{}); res.Score != 0 {
		t.Fatalf("expected no match for blank text, got %+v", res)
	}
}

func TestRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"a", ""},
		{"alpha", "omega"},
		{"statement", "statement"},
	}
	for _, pair := range pairs {
		score := textmatch.Ratio(pair[0], pair[1])
		if score < 0 || score > 1 {
			t.Fatalf("Ratio(%q, %q) = %v out of [0,1]", pair[0], pair[1], score)
		}
	}
	if textmatch.Ratio("same", "same") != 1.0 {
		t.Fatal("identical strings must score 1.0")
	}
}

func TestTokenizeFiltersShortTokens(t *testing.T) {
	tokens := textmatch.Tokenize("Q4 Alpha-Fund II report")
	want := []string{"alpha", "fund", "report"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], token)
		}
	}
}

func TestTokenizeKeepsNonASCIILetters(t *testing.T) {
	tokens := textmatch.Tokenize("Müller Fonds Bericht")
	want := []string{"müller", "fonds", "bericht"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], token)
		}
	}

	// Rune count, not byte count, decides the short-token filter: "øl" is
	// three bytes but two runes.
	if tokens := textmatch.Tokenize("Æon øl"); len(tokens) != 1 || tokens[0] != "æon" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestTermsPreservesFirstSeenOrder(t *testing.T) {
	terms := textmatch.Terms("Alpha fund report", "report for alpha growth")
	want := []string{"alpha", "fund", "report", "for", "growth"}
	// "for" survives only if >= 3 chars; it is exactly 3.
	if len(terms) != len(want) {
		t.Fatalf("unexpected terms: %v", terms)
	}
	for i, term := range want {
		if terms[i] != term {
			t.Fatalf("term %d: got %q want %q", i, terms[i], term)
		}
	}
}

func TestSharedWords(t *testing.T) {
	if got := textmatch.SharedWords("Alpha Growth Fund", "alpha fund statement"); got != 2 {
		t.Fatalf("expected 2 shared words, got %d", got)
	}
	if got := textmatch.SharedWords("Alpha", "omega"); got != 0 {
		t.Fatalf("expected 0 shared words, got %d", got)
	}
}
