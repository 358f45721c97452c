// Package delim reads delimited records while keeping their original bytes.
//
// Unlike encoding/csv, the quote character is configurable and every field
// keeps a reference to its raw text, so a record can be written back
// byte-for-byte with only selected fields changed.
package delim

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Quoting faults. A record carrying one is still returned in full.
var (
	ErrBareQuote         = errors.New("bare quote in non-quoted field")
	ErrTrailingQuote     = errors.New("extraneous data after closing quote")
	ErrUnterminatedQuote = errors.New("quoted field not terminated before end of input")
)

const bufferSize = 64 * 1024

// bom is a UTF-8 byte order mark. At the start of input it is kept in the
// first record's Raw bytes but not in its first field.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Field is one parsed field of a Record.
type Field struct {
	Value  string // unquoted, unescaped value
	Quoted bool   // field was enclosed in quotes

	start, end int // raw span within Record.Raw
}

// Record is one delimited record.
type Record struct {
	Raw    []byte  // original bytes including the terminator
	Fields []Field // parsed fields, in order
	Line   int     // 1-based line the record starts on
	Err    error   // quoting fault, if any

	term int // terminator length at the end of Raw: 0, 1 ("\n") or 2 ("\r\n")
}

// RawField returns the original bytes of field i, quotes included.
func (r *Record) RawField(i int) []byte {
	f := r.Fields[i]
	return r.Raw[f.start:f.end]
}

// Terminator returns the record's original line ending (empty at end of input).
func (r *Record) Terminator() []byte {
	return r.Raw[len(r.Raw)-r.term:]
}

// Blank reports whether the record is an empty line.
func (r *Record) Blank() bool {
	return len(r.Raw) == r.term && r.Err == nil
}

// Reader reads records from a buffered source.
type Reader struct {
	br    *bufio.Reader
	comma byte
	quote byte
	line  int

	started bool
}

// NewReader returns a Reader splitting fields on comma and quoting with quote.
func NewReader(r io.Reader, comma, quote byte) *Reader {
	return &Reader{
		br:    bufio.NewReaderSize(r, bufferSize),
		comma: comma,
		quote: quote,
		line:  1,
	}
}

// Read returns the next record, or io.EOF when the input is exhausted.
// Quoting faults are reported in Record.Err; a non-nil error return comes
// from the underlying reader.
func (r *Reader) Read() (*Record, error) {
	rec := &Record{Line: r.line}
	var (
		value   []byte
		start   int
		quoted  bool
		inQuote bool
	)

	endField := func(end int) {
		rec.Fields = append(rec.Fields, Field{
			Value:  string(value),
			Quoted: quoted,
			start:  start,
			end:    end,
		})
		value = value[:0]
		quoted = false
	}
	fault := func(err error) {
		if rec.Err == nil {
			rec.Err = err
		}
	}

	if !r.started {
		r.started = true
		if b, _ := r.br.Peek(len(bom)); bytes.Equal(b, bom) {
			r.br.Discard(len(bom))
			rec.Raw = append(rec.Raw, bom...)
			start = len(bom)
		}
	}

	for {
		c, err := r.br.ReadByte()
		if err == io.EOF {
			if len(rec.Raw) == 0 {
				return nil, io.EOF
			}
			if inQuote {
				rec.Err = ErrUnterminatedQuote
			}
			endField(len(rec.Raw))
			return rec, nil
		}
		if err != nil {
			return nil, err
		}

		rec.Raw = append(rec.Raw, c)
		pos := len(rec.Raw) - 1

		if inQuote {
			if c == '\n' {
				r.line++
			}
			if c != r.quote {
				value = append(value, c)
				continue
			}
			next, err := r.br.Peek(1)
			if err == nil && next[0] == r.quote {
				r.br.ReadByte()
				rec.Raw = append(rec.Raw, r.quote)
				value = append(value, r.quote)
				continue
			}
			inQuote = false
			if err == nil && next[0] != r.comma && next[0] != '\n' && next[0] != '\r' {
				fault(ErrTrailingQuote)
			}
			continue
		}

		switch {
		case c == r.comma:
			endField(pos)
			start = len(rec.Raw)
		case c == '\n':
			r.line++
			rec.term = 1
			endField(pos)
			return rec, nil
		case c == '\r':
			next, err := r.br.Peek(1)
			if err == nil && next[0] == '\n' {
				r.br.ReadByte()
				rec.Raw = append(rec.Raw, '\n')
				r.line++
				rec.term = 2
				endField(pos)
				return rec, nil
			}
			value = append(value, c)
		case c == r.quote && pos == start:
			quoted = true
			inQuote = true
		case c == r.quote:
			fault(ErrBareQuote)
			value = append(value, c)
		default:
			value = append(value, c)
		}
	}
}

// SetComma changes the delimiter for subsequent reads.
func (r *Reader) SetComma(comma byte) {
	r.comma = comma
}

// Peek returns up to n buffered bytes without consuming them.
func (r *Reader) Peek(n int) []byte {
	b, _ := r.br.Peek(n)
	return b
}
