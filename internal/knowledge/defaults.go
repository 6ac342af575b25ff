package knowledge

// DefaultMatchingRules returns the built-in rule set used when no RuleProvider
// is configured or the provider is unavailable. Weights sum to 1.0 so a
// perfect match across all rules saturates confidence.
func DefaultMatchingRules() []Rule {
	return []Rule{
		{ID: RuleNameMatch, Kind: RuleMatching, Weight: 0.4, BaseConfidence: 0.9},
		{ID: RuleSenderAssociation, Kind: RuleMatching, Weight: 0.3, BaseConfidence: 0.85},
		{ID: RuleKeywordMatch, Kind: RuleMatching, Weight: 0.3, BaseConfidence: 0.8},
	}
}
