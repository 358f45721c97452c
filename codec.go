package scrub

import "io"

// Codec streams the structural units of one format.
type Codec interface {
	// Format returns the format this codec handles (e.g., "csv").
	Format() Format

	// Open prepares a cursor reading units from src and writing them to dst.
	// An error from Open is fatal for the run.
	Open(src io.Reader, dst io.Writer) (Cursor, error)
}

// Cursor is a forward-only, pull-based sequence of units.
//
// Next returns io.EOF once the source is exhausted. When a unit is readable
// but structurally faulty, Next returns the unit together with a
// *StructuralError; the caller is expected to Write it unchanged. Any other
// error is fatal.
//
// Cursors must not retain a unit after it has been written.
type Cursor interface {
	Next() (Unit, error)

	// Write appends the unit, and any framing that precedes it, to the sink.
	Write(u Unit) error

	// Close writes trailing framing and flushes the sink.
	Close() error
}

// Unit is one record-level element of a stream.
type Unit interface {
	// Rewrite replaces every location the substituter matches and returns the
	// distinct field names that were replaced.
	Rewrite(s Substituter) ([]string, error)
}

// Substituter decides, for a unit being rewritten, which locations are
// obfuscated and what replaces them.
type Substituter interface {
	// Match reports the requested field addressed by path, if any.
	Match(path []string) (string, bool)

	// Descend reports whether nested values under path may contain matches.
	Descend(path []string) bool

	// Replace returns the replacement for a matched value.
	Replace(field string, v Value) string
}
