// Package diag defines the diagnostic model shared by the lexer, the compiler and
// the driver.
//
// Diagnostic is a plain record: severity, a numeric Code with a stable string form
// (LEX/SYN/SEM/IO ranges), a message, the primary source span, optional notes and
// optional fix suggestions. Producers emit through a Reporter; BagReporter collects
// into a Bag that supports limits, sorting and deduplication.
//
// Package diag does no formatting or IO. Rendering lives in internal/diagfmt.
package diag
