package scrub

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/zoobzio/scrub/internal/delim"
)

// CSVOptions configures the delimited-text dialect.
type CSVOptions struct {
	// Delimiter separates fields. Zero sniffs it from the header line
	// among , ; tab and |.
	Delimiter rune

	// Quote encloses fields containing delimiters or line breaks.
	// Zero means '"'.
	Quote rune
}

// DefaultCSVOptions returns the comma-delimited, double-quoted dialect.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', Quote: '"'}
}

// csvCodec implements Codec for delimited text with a header row.
type csvCodec struct {
	format Format
	comma  byte // 0 = sniff
	quote  byte
}

// NewCSV returns a CSV codec for the given dialect. Delimiter and quote must
// be distinct single-byte characters other than CR and LF.
func NewCSV(opts CSVOptions) (Codec, error) {
	return newDelimited(FormatCSV, opts)
}

// NewTSV returns a tab-delimited codec.
func NewTSV() Codec {
	return &csvCodec{format: FormatTSV, comma: '\t', quote: '"'}
}

func newDelimited(format Format, opts CSVOptions) (*csvCodec, error) {
	if opts.Quote == 0 {
		opts.Quote = '"'
	}
	for _, r := range []rune{opts.Delimiter, opts.Quote} {
		if r < 0 || r >= 0x80 || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("%w: delimiter or quote %q", ErrInvalidDialect, r)
		}
	}
	if opts.Delimiter == opts.Quote {
		return nil, fmt.Errorf("%w: delimiter and quote are both %q", ErrInvalidDialect, opts.Quote)
	}
	return &csvCodec{format: format, comma: byte(opts.Delimiter), quote: byte(opts.Quote)}, nil
}

// Format returns the codec's format.
func (c *csvCodec) Format() Format {
	return c.format
}

// Open reads and writes the header row. An empty stream has no header and
// is a fatal error.
func (c *csvCodec) Open(src io.Reader, dst io.Writer) (Cursor, error) {
	r := delim.NewReader(src, c.comma, c.quote)
	comma := c.comma
	if comma == 0 {
		comma = delim.Sniff(r.Peek(4096), c.quote)
		r.SetComma(comma)
	}

	head, err := r.Read()
	if err == io.EOF {
		return nil, newFatalError(ErrMissingHeader, nil)
	}
	if err != nil {
		return nil, newFatalError(ErrStream, err)
	}
	if head.Blank() {
		return nil, newFatalError(ErrMissingHeader, fmt.Errorf("line %d is empty", head.Line))
	}
	if head.Err != nil {
		return nil, newFatalError(ErrMalformed, fmt.Errorf("header: %w", head.Err))
	}

	header := make([]string, len(head.Fields))
	for i, f := range head.Fields {
		header[i] = f.Value
	}

	w := bufio.NewWriter(dst)
	if _, err := w.Write(head.Raw); err != nil {
		return nil, newFatalError(ErrStream, err)
	}

	return &csvCursor{
		r:      r,
		w:      w,
		header: header,
		comma:  comma,
		quote:  c.quote,
	}, nil
}

// csvCursor streams data rows.
type csvCursor struct {
	r       *delim.Reader
	w       *bufio.Writer
	header  []string
	comma   byte
	quote   byte
	units   int
	pending []byte // blank lines awaiting the next unit
}

// csvRow is one data row.
type csvRow struct {
	rec      *delim.Record
	header   []string
	replaced map[int]string
}

func (c *csvCursor) Next() (Unit, error) {
	for {
		rec, err := c.r.Read()
		if err != nil {
			return nil, err
		}
		if rec.Blank() {
			c.pending = append(c.pending, rec.Raw...)
			continue
		}

		// An open quote swallows the rest of the stream into one record, so
		// no later row can be trusted.
		if errors.Is(rec.Err, delim.ErrUnterminatedQuote) {
			return nil, newFatalError(ErrMalformed, fmt.Errorf("line %d: %w", rec.Line, rec.Err))
		}

		c.units++
		row := &csvRow{rec: rec, header: c.header}
		if len(rec.Fields) != len(c.header) {
			return row, newStructuralError(ErrColumnCount, c.units, rec.Line,
				fmt.Errorf("got %d fields, header has %d", len(rec.Fields), len(c.header)))
		}
		if rec.Err != nil {
			se := newStructuralError(ErrQuote, c.units, rec.Line, rec.Err)
			se.Recovered = true
			return row, se
		}
		return row, nil
	}
}

func (c *csvCursor) Write(u Unit) error {
	row, ok := u.(*csvRow)
	if !ok {
		return fmt.Errorf("csv: cannot write %T", u)
	}
	if len(c.pending) > 0 {
		if _, err := c.w.Write(c.pending); err != nil {
			return err
		}
		c.pending = c.pending[:0]
	}
	if len(row.replaced) == 0 {
		_, err := c.w.Write(row.rec.Raw)
		return err
	}

	out := make([]byte, 0, len(row.rec.Raw)+16)
	for i, f := range row.rec.Fields {
		if i > 0 {
			out = append(out, c.comma)
		}
		if v, ok := row.replaced[i]; ok {
			out = delim.AppendField(out, v, f.Quoted, c.comma, c.quote)
			continue
		}
		out = append(out, row.rec.RawField(i)...)
	}
	out = append(out, row.rec.Terminator()...)
	_, err := c.w.Write(out)
	return err
}

func (c *csvCursor) Close() error {
	if len(c.pending) > 0 {
		if _, err := c.w.Write(c.pending); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

// Rewrite replaces matched columns. Only header names are addressable.
func (u *csvRow) Rewrite(s Substituter) ([]string, error) {
	var hits []string
	for i, name := range u.header {
		field, ok := s.Match([]string{name})
		if !ok {
			continue
		}
		if u.replaced == nil {
			u.replaced = make(map[int]string)
		}
		u.replaced[i] = s.Replace(field, Value{Kind: KindString, Raw: u.rec.Fields[i].Value})
		hits = appendUnique(hits, field)
	}
	return hits, nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
