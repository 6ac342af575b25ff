package textmatch

import "strings"

const (
	// DefaultExactFuzzyThreshold promotes a fuzzy hit to exact-equivalent scoring.
	DefaultExactFuzzyThreshold = 0.9
	// DefaultPartialThreshold is the minimum similarity that counts as a match.
	DefaultPartialThreshold = 0.7
)

// Config carries the two matcher thresholds. The zero value selects defaults.
type Config struct {
	ExactFuzzyThreshold float64
	PartialThreshold    float64
}

func (c Config) withDefaults() Config {
	if c.ExactFuzzyThreshold <= 0 {
		c.ExactFuzzyThreshold = DefaultExactFuzzyThreshold
	}
	if c.PartialThreshold <= 0 {
		c.PartialThreshold = DefaultPartialThreshold
	}
	return c
}

// Result describes the best match found for a keyword within a body of text.
// A zero Score means no token cleared the partial threshold.
type Result struct {
	Score float64
	Token string
	Exact bool
}

// Match scores keyword against text and returns the best hit among the text's
// tokens. An exact case-insensitive substring always scores 1.0; otherwise the
// best edit-distance ratio across token windows is used, promoted to
// exact-equivalent above the exact-fuzzy threshold and discarded below the
// partial threshold. Pure and side-effect-free.
func Match(keyword, text string, cfg Config) Result {
	cfg = cfg.withDefaults()

	keyword = strings.TrimSpace(keyword)
	if keyword == "" || strings.TrimSpace(text) == "" {
		return Result{}
	}

	foldedKeyword := Fold(keyword)
	foldedText := Fold(text)
	if strings.Contains(foldedText, foldedKeyword) {
		return Result{Score: 1.0, Token: foldedKeyword, Exact: true}
	}

	keywordTokens := Tokenize(keyword)
	if len(keywordTokens) == 0 {
		return Result{}
	}
	target := strings.Join(keywordTokens, " ")

	best := Result{}
	for _, candidate := range tokenWindows(foldedText, len(keywordTokens)) {
		score := Ratio(target, candidate)
		if score > best.Score {
			best = Result{Score: score, Token: candidate}
		}
	}

	if best.Score < cfg.PartialThreshold {
		return Result{}
	}
	best.Exact = best.Score >= cfg.ExactFuzzyThreshold
	return best
}

// tokenWindows returns every run of width consecutive tokens joined by spaces.
func tokenWindows(text string, width int) []string {
	tokens := Tokenize(text)
	if width < 1 {
		width = 1
	}
	if len(tokens) < width {
		if len(tokens) == 0 {
			return nil
		}
		return []string{strings.Join(tokens, " ")}
	}
	windows := make([]string, 0, len(tokens)-width+1)
	for i := 0; i+width <= len(tokens); i++ {
		windows = append(windows, strings.Join(tokens[i:i+width], " "))
	}
	return windows
}

// Ratio computes a normalized edit-distance similarity in [0,1]. Identical
// strings score 1.0; the score decreases as edit distance grows.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	distance := levenshtein(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// levenshtein computes edit distance with a two-row dynamic program.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
