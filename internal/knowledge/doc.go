// Package knowledge holds the factual side of identification: asset profiles,
// sender mappings, weighted rules, category patterns, and prior outcomes.
//
// The provider interfaces (RuleProvider, Provider, HistoryProvider,
// FeedbackRecorder) are the only surface the engines depend on. The bundled
// Store implements all four on SQLite; JSON files or a vector-indexed service
// are equally valid implementations behind the same contracts.
package knowledge
