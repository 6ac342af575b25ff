// Package identify scores known assets against one attachment's context and
// returns the single best match or a needs-review fallback.
//
// Scoring is multi-signal: weighted rules from a RuleProvider (name match,
// sender association, keyword match with coverage and multi-match shaping),
// candidate gathering with a sender-trust shortcut and fuzzy widening, and a
// historical-outcome adjustment. Confidence is always clamped to [0,1] and
// exactly one AssetMatch is produced per attachment.
package identify
