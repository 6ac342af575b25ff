package identify

import "pigeonhole/internal/knowledge"

// ReviewSentinel is the asset id reported when no candidate clears the
// identification threshold. It is never a real asset id.
const ReviewSentinel = "needs-review"

// RuleApplication records one rule's contribution to a candidate's score.
type RuleApplication struct {
	RuleID       string
	RawScore     float64
	Weight       float64
	Contribution float64
	Detail       string
}

// CandidateScore accumulates evidence for one (attachment, asset) pair.
// Transient: built and discarded per identification call.
type CandidateScore struct {
	Asset        knowledge.Asset
	Confidence   float64
	Applications []RuleApplication
	MatchedTerms []string
}

// AssetMatch is the single identification outcome for one attachment. AssetID
// is either a real asset id or ReviewSentinel, never empty.
type AssetMatch struct {
	Filename   string
	AssetID    string
	AssetName  string
	AssetType  string
	Confidence float64
	Reasoning  []string
}

// NeedsReview reports whether the match must be routed to a human.
func (m AssetMatch) NeedsReview() bool {
	return m.AssetID == ReviewSentinel
}
