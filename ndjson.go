package scrub

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ndjsonCodec implements Codec for newline-delimited JSON. Each non-blank
// line is one object. A bad line is a soft error and is passed through
// unchanged; the remaining lines are still processed.
type ndjsonCodec struct{}

// NewNDJSON returns the newline-delimited JSON codec.
func NewNDJSON() Codec {
	return &ndjsonCodec{}
}

// Format returns FormatNDJSON.
func (c *ndjsonCodec) Format() Format {
	return FormatNDJSON
}

// Open never fails: an empty stream has zero units.
func (c *ndjsonCodec) Open(src io.Reader, dst io.Writer) (Cursor, error) {
	return &ndjsonCursor{
		r: bufio.NewReaderSize(src, 64*1024),
		w: bufio.NewWriter(dst),
	}, nil
}

type ndjsonCursor struct {
	r       *bufio.Reader
	w       *bufio.Writer
	line    int
	units   int
	pending []byte
	eof     bool
}

func (c *ndjsonCursor) Next() (Unit, error) {
	for {
		if c.eof {
			return nil, io.EOF
		}
		line, err := c.r.ReadBytes('\n')
		if err == io.EOF {
			c.eof = true
			if len(line) == 0 {
				return nil, io.EOF
			}
		} else if err != nil {
			return nil, err
		}
		c.line++

		body, term := splitTerminator(line)
		if len(bytes.TrimSpace(body)) == 0 {
			c.pending = append(c.pending, line...)
			continue
		}

		c.units++
		u := &jsonUnit{raw: body, suffix: term}
		if !json.Valid(body) {
			return u, newStructuralError(ErrMalformed, c.units, c.line, errors.New("invalid JSON"))
		}
		if first := body[valueStart(body)]; first != '{' {
			return u, newStructuralError(ErrNotObject, c.units, c.line,
				fmt.Errorf("line holds %s", jsonKind(first)))
		}
		return u, nil
	}
}

func (c *ndjsonCursor) Write(u Unit) error {
	ju, ok := u.(*jsonUnit)
	if !ok {
		return fmt.Errorf("ndjson: cannot write %T", u)
	}
	if len(c.pending) > 0 {
		if _, err := c.w.Write(c.pending); err != nil {
			return err
		}
		c.pending = c.pending[:0]
	}
	return ju.writeTo(c.w)
}

func (c *ndjsonCursor) Close() error {
	if _, err := c.w.Write(c.pending); err != nil {
		return err
	}
	return c.w.Flush()
}

// splitTerminator separates a trailing "\n" or "\r\n" from line.
func splitTerminator(line []byte) (body, term []byte) {
	n := len(line)
	switch {
	case n >= 2 && line[n-2] == '\r' && line[n-1] == '\n':
		return line[:n-2], line[n-2:]
	case n >= 1 && line[n-1] == '\n':
		return line[:n-1], line[n-1:]
	}
	return line, nil
}
