package scrub

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// jsonCodec implements Codec for a single top-level object or a top-level
// array of objects. Output is copied from the input byte for byte except for
// replaced values, so whitespace, escapes, number spelling and key order
// survive.
type jsonCodec struct{}

// NewJSON returns the JSON codec.
func NewJSON() Codec {
	return &jsonCodec{}
}

// Format returns FormatJSON.
func (c *jsonCodec) Format() Format {
	return FormatJSON
}

// Open inspects the first significant byte to choose between the single
// object and array shapes. Anything else is malformed.
func (c *jsonCodec) Open(src io.Reader, dst io.Writer) (Cursor, error) {
	br := bufio.NewReader(src)
	w := bufio.NewWriter(dst)

	var lead []byte
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			return nil, newFatalError(ErrMalformed, errors.New("empty document"))
		}
		if err != nil {
			return nil, newFatalError(ErrStream, err)
		}
		if !isSpace(b[0]) {
			break
		}
		br.ReadByte()
		lead = append(lead, b[0])
	}

	first, _ := br.Peek(1)
	rec := &recorder{r: br}
	cur := &jsonCursor{
		rec: rec,
		dec: json.NewDecoder(rec),
		w:   w,
	}

	switch first[0] {
	case '{':
	case '[':
		cur.array = true
		if _, err := cur.dec.Token(); err != nil {
			return nil, jsonFatal(err)
		}
		lead = append(lead, rec.take(cur.dec.InputOffset())...)
	default:
		return nil, newFatalError(ErrMalformed,
			fmt.Errorf("top-level value must be an object or array, found %q", first[0]))
	}

	if _, err := w.Write(lead); err != nil {
		return nil, newFatalError(ErrStream, err)
	}
	return cur, nil
}

// jsonCursor streams top-level objects.
type jsonCursor struct {
	rec   *recorder
	dec   *json.Decoder
	w     *bufio.Writer
	array bool
	done  bool
	units int
	tail  []byte
}

func (c *jsonCursor) Next() (Unit, error) {
	if c.done {
		return nil, io.EOF
	}

	if (c.array && !c.dec.More()) || (!c.array && c.units == 1) {
		if c.array {
			if _, err := c.dec.Token(); err != nil {
				if err == io.EOF {
					return nil, newFatalError(ErrMalformed, io.ErrUnexpectedEOF)
				}
				return nil, jsonFatal(err)
			}
		}
		if err := c.finish(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, jsonFatal(err)
	}
	chunk := c.rec.take(c.dec.InputOffset())
	start := valueStart(chunk)
	c.units++

	u := &jsonUnit{prefix: chunk[:start], raw: chunk[start:]}
	if u.raw[0] != '{' {
		return u, newStructuralError(ErrNotObject, c.units, 0,
			fmt.Errorf("array element is %s", kindOf(u.raw)))
	}
	return u, nil
}

// finish checks that nothing but whitespace follows the top-level value.
func (c *jsonCursor) finish() error {
	tok, err := c.dec.Token()
	if err == nil {
		return newFatalError(ErrMalformed, fmt.Errorf("unexpected trailing data %v", tok))
	}
	if err != io.EOF {
		return jsonFatal(err)
	}
	c.tail = c.rec.take(c.rec.offset())
	c.done = true
	return nil
}

func (c *jsonCursor) Write(u Unit) error {
	ju, ok := u.(*jsonUnit)
	if !ok {
		return fmt.Errorf("json: cannot write %T", u)
	}
	return ju.writeTo(c.w)
}

func (c *jsonCursor) Close() error {
	if _, err := c.w.Write(c.tail); err != nil {
		return err
	}
	return c.w.Flush()
}

// jsonUnit is one JSON value with the framing bytes around it.
type jsonUnit struct {
	prefix []byte // whitespace and separators before the value
	raw    []byte // the value as read
	suffix []byte // bytes after the value (NDJSON line terminator)
	out    []byte // rewritten value, nil when unchanged
}

func (u *jsonUnit) Rewrite(s Substituter) ([]string, error) {
	out, hits, err := rewriteObject(u.raw, s)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		u.out = out
	}
	return hits, nil
}

func (u *jsonUnit) writeTo(w io.Writer) error {
	body := u.raw
	if u.out != nil {
		body = u.out
	}
	for _, b := range [][]byte{u.prefix, body, u.suffix} {
		if len(b) == 0 {
			continue
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// recorder keeps every byte read through it until taken, so the cursor can
// copy the exact source text between decoder offsets.
type recorder struct {
	r    io.Reader
	buf  []byte
	base int64 // stream offset of buf[0]
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.buf = append(r.buf, p[:n]...)
	return n, err
}

// offset returns the stream offset just past the last recorded byte.
func (r *recorder) offset() int64 {
	return r.base + int64(len(r.buf))
}

// take removes and returns recorded bytes up to the stream offset end.
func (r *recorder) take(end int64) []byte {
	n := int(end - r.base)
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = append(r.buf[:0], r.buf[n:]...)
	r.base = end
	return out
}

// rewriter walks one in-memory JSON value, copying source bytes to out and
// splicing replacements over matched values.
type rewriter struct {
	dec  *json.Decoder
	src  []byte
	out  []byte
	last int
	s    Substituter
	hits []string
}

// rewriteObject rewrites the object in src.
func rewriteObject(src []byte, s Substituter) ([]byte, []string, error) {
	w := &rewriter{
		dec: json.NewDecoder(bytes.NewReader(src)),
		src: src,
		s:   s,
	}
	tok, err := w.dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, found %v", tok)
	}
	if err := w.object(nil); err != nil {
		return nil, nil, err
	}
	w.out = append(w.out, w.src[w.last:]...)
	return w.out, w.hits, nil
}

// object processes members after the opening brace through the closing one.
func (w *rewriter) object(path []string) error {
	for w.dec.More() {
		tok, err := w.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, found %v", tok)
		}
		keyEnd := int(w.dec.InputOffset())
		p := append(path[:len(path):len(path)], key)

		if field, ok := w.s.Match(p); ok {
			if err := w.replace(field, keyEnd); err != nil {
				return err
			}
			continue
		}
		if err := w.value(p); err != nil {
			return err
		}
	}
	_, err := w.dec.Token()
	return err
}

// array processes elements after the opening bracket through the closing
// one. Elements share the array's path.
func (w *rewriter) array(path []string) error {
	for w.dec.More() {
		if err := w.value(path); err != nil {
			return err
		}
	}
	_, err := w.dec.Token()
	return err
}

// value consumes one value, descending into containers that may hold matches.
func (w *rewriter) value(path []string) error {
	if !w.s.Descend(path) {
		var skip json.RawMessage
		return w.dec.Decode(&skip)
	}
	tok, err := w.dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('{'):
		return w.object(path)
	case json.Delim('['):
		return w.array(path)
	}
	return nil
}

// replace consumes the value following the key ending at keyEnd and splices
// the policy's replacement over it.
func (w *rewriter) replace(field string, keyEnd int) error {
	var raw json.RawMessage
	if err := w.dec.Decode(&raw); err != nil {
		return err
	}
	end := int(w.dec.InputOffset())
	start := keyEnd
	for start < end && (isSpace(w.src[start]) || w.src[start] == ':') {
		start++
	}

	v := Value{Kind: jsonKind(w.src[start]), Raw: string(w.src[start:end])}
	if v.Kind == KindString {
		var s string
		if err := json.Unmarshal(w.src[start:end], &s); err != nil {
			return err
		}
		v.Raw = s
	}

	w.out = append(w.out, w.src[w.last:start]...)
	w.out = appendJSONString(w.out, w.s.Replace(field, v))
	w.last = end
	w.hits = appendUnique(w.hits, field)
	return nil
}

// appendJSONString appends s as a JSON string without HTML escaping.
func appendJSONString(dst []byte, s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return append(dst, bytes.TrimRight(buf.Bytes(), "\n")...)
}

func jsonKind(first byte) Kind {
	switch first {
	case '"':
		return KindString
	case '{':
		return KindObject
	case '[':
		return KindArray
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	}
	return KindNumber
}

func kindOf(raw []byte) string {
	return jsonKind(raw[0]).String()
}

// valueStart returns the index of the first byte that is not whitespace or
// an element separator.
func valueStart(chunk []byte) int {
	i := 0
	for i < len(chunk) && (isSpace(chunk[i]) || chunk[i] == ',') {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// jsonFatal classifies a decoder error as malformed input or a stream failure.
func jsonFatal(err error) error {
	var se *json.SyntaxError
	if errors.As(err, &se) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newFatalError(ErrMalformed, err)
	}
	return newFatalError(ErrStream, err)
}
