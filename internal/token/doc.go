// Package token defines lexical token kinds for Ember.
// Invariants:
//   - Token.Text is the exact source slice covered by Token.Span.
//   - Interpolated strings arrive as StrHead, the tokens of each embedded
//     expression, zero or more StrMid, and a final StrTail.
//   - Cast targets (bool, int, float, str) are keywords, not identifiers.
package token
