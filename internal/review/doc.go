// Package review routes low-confidence attachments to a human queue and turns
// reviewer dispositions into knowledge-layer feedback.
package review
