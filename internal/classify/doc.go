// Package classify assigns a document category to an identified attachment.
//
// The engine is a pure scorer: allowed categories, their patterns, and the
// per-type fallback category all live in the knowledge layer and are fetched
// per invocation. Filename text is evaluated before subject and body text, and
// a configured fallback category catches documents no pattern recognizes.
package classify
