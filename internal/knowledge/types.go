package knowledge

import "time"

// Asset is an investment vehicle that documents are filed against. Created and
// updated by an external asset-management process; read-only to the engines.
type Asset struct {
	ID   string
	Name string
	Type string
	// Keywords holds alternate identifiers and match keywords.
	Keywords []string
	// Threshold overrides the configured identification threshold when > 0.
	Threshold float64
}

// RuleKind distinguishes matching rules from classification rules.
type RuleKind string

const (
	RuleMatching       RuleKind = "matching"
	RuleClassification RuleKind = "classification"
)

// Well-known matching rule identifiers. Providers may supply additional rules;
// the identification engine evaluates the ones it understands and ignores the
// rest.
const (
	RuleNameMatch         = "name-match"
	RuleSenderAssociation = "sender-association"
	RuleKeywordMatch      = "keyword-match"
)

// RuleQuarantine is a file-processing rule id: attachments whose extension
// carries this rule are quarantined rather than filed.
const RuleQuarantine = "quarantine"

// Rule is a weighted decision rule supplied by a RuleProvider. Immutable per
// invocation; the provider may evolve weights between invocations.
type Rule struct {
	ID             string
	Kind           RuleKind
	Weight         float64
	BaseConfidence float64
	// Pattern optionally carries a regex or keyword list, depending on the rule.
	Pattern string
}

// Pattern is a classification pattern for one document category.
type Pattern struct {
	Category       string
	Expression     string
	BaseConfidence float64
}

// PastOutcome records a prior filing decision for a sender/asset pair.
type PastOutcome struct {
	Sender     string
	AssetID    string
	Confidence float64
	DecidedAt  time.Time
	// Source is "auto" for pipeline filings and "review" for human dispositions.
	Source string
}
