// Package textmatch provides pure text similarity scoring between short
// keywords and free text.
//
// The primary use cases are:
//   - Exact case-folded substring detection (score 1.0)
//   - Fuzzy matching via normalized edit distance over token windows
//   - Tokenization and ordered term de-duplication for candidate lookup
//
// Two thresholds shape the result: scores at or above the exact-fuzzy
// threshold are treated as exact-equivalent, and scores below the partial
// threshold are reported as no-match. All functions are side-effect-free.
package textmatch
