package scrub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Pipeline drives the read, rewrite, write loop for one request at a time.
//
// A Pipeline is immutable once built. Run may be called concurrently; every
// call owns its own cursor, counters and result.
type Pipeline struct {
	codecs map[Format]Codec
	policy Policy
	marker string
	depth  Depth
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPolicy sets the replacement policy. The default is Redact(marker).
func WithPolicy(policy Policy) Option {
	return func(p *Pipeline) error {
		p.policy = policy
		return nil
	}
}

// WithMarker sets the marker used by the default policy.
func WithMarker(marker string) Option {
	return func(p *Pipeline) error {
		p.marker = marker
		return nil
	}
}

// WithDepth sets how field names match nested keys.
func WithDepth(depth Depth) Option {
	return func(p *Pipeline) error {
		if !IsValidDepth(depth) {
			return newValidationError(ErrInvalidDepth, "Depth", string(depth))
		}
		p.depth = depth
		return nil
	}
}

// WithCodec registers codec for its format, replacing any existing one.
func WithCodec(codec Codec) Option {
	return func(p *Pipeline) error {
		p.codecs[codec.Format()] = codec
		return nil
	}
}

// WithCSV replaces the CSV codec with one using the given dialect.
func WithCSV(opts CSVOptions) Option {
	return func(p *Pipeline) error {
		codec, err := NewCSV(opts)
		if err != nil {
			return err
		}
		p.codecs[FormatCSV] = codec
		return nil
	}
}

// NewPipeline creates a pipeline with the CSV, TSV, JSON and NDJSON codecs
// registered, top-level matching, and the redact policy.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	csv, _ := NewCSV(DefaultCSVOptions())
	p := &Pipeline{
		codecs: map[Format]Codec{
			FormatCSV:    csv,
			FormatTSV:    NewTSV(),
			FormatJSON:   NewJSON(),
			FormatNDJSON: NewNDJSON(),
		},
		marker: DefaultMarker,
		depth:  DepthTopLevel,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.policy == nil {
		p.policy = Redact(p.marker)
	}
	return p, nil
}

// Formats returns the registered formats, sorted.
func (p *Pipeline) Formats() []Format {
	out := make([]Format, 0, len(p.codecs))
	for f := range p.codecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Obfuscate runs req and returns the obfuscated stream in Result.Output.
func (p *Pipeline) Obfuscate(ctx context.Context, req Request) *Result {
	var buf bytes.Buffer
	res := p.Run(ctx, req, &buf)
	if res.OK() {
		res.Output = buf.Bytes()
	}
	return res
}

// Run obfuscates req.Source into dst one unit at a time.
//
// The request is validated before the source is read. Soft errors are
// collected; a faulty unit is written unchanged unless the codec recovered
// its fields. A fatal error stops the
// run; whatever was already written to dst must be discarded.
func (p *Pipeline) Run(ctx context.Context, req Request, dst io.Writer) *Result {
	start := time.Now()
	runID := uuid.NewString()

	fields, codec, err := req.fieldSet(p.codecs)
	if err == nil && dst == nil {
		err = newValidationError(ErrNilSink, "Sink", "")
	}
	if err != nil {
		res := failed(runID, req.Format, err, start)
		emitRunComplete(ctx, res)
		return res
	}
	if err := ctx.Err(); err != nil {
		res := failed(runID, req.Format, newFatalError(ErrCancelled, err), start)
		emitRunComplete(ctx, res)
		return res
	}

	emitRunStart(ctx, runID, req.Format, len(fields))

	r := &run{
		ctx:     ctx,
		id:      runID,
		sub:     &substituter{Matcher: NewMatcher(fields, p.depth), policy: p.policy},
		matched: make(map[string]int),
	}
	res := r.execute(codec, &ctxReader{ctx: ctx, r: req.Source}, dst)
	res.RunID = runID
	res.Format = req.Format
	res.Duration = time.Since(start)

	if res.Status == Failed {
		res.Matched = map[string]int{}
		emitRunComplete(ctx, res)
		return res
	}

	for _, f := range fields {
		if _, ok := res.Matched[f]; !ok {
			res.Unmatched = append(res.Unmatched, f)
		}
	}
	sort.Strings(res.Unmatched)
	for _, f := range res.Unmatched {
		emitFieldUnmatched(ctx, runID, f)
	}
	emitRunComplete(ctx, res)
	return res
}

// run holds the mutable state of one Run call.
type run struct {
	ctx     context.Context
	id      string
	sub     *substituter
	matched map[string]int
	soft    []error
	units   int
}

func (r *run) execute(codec Codec, src io.Reader, dst io.Writer) *Result {
	cur, err := codec.Open(src, dst)
	if err != nil {
		return r.fail(newFatalError(ErrStream, err))
	}

	for {
		if err := r.ctx.Err(); err != nil {
			return r.fail(newFatalError(ErrCancelled, err))
		}

		u, err := cur.Next()
		if err == io.EOF {
			break
		}
		var se *StructuralError
		if err != nil {
			if !errors.As(err, &se) || u == nil {
				return r.fail(newFatalError(ErrStream, err))
			}
			r.soft = append(r.soft, se)
			emitUnitError(r.ctx, r.id, se)
		}
		if err == nil || se.Recovered {
			hits, err := u.Rewrite(r.sub)
			if err != nil {
				return r.fail(newFatalError(ErrMalformed, err))
			}
			for _, h := range hits {
				r.matched[h]++
			}
		}

		r.units++
		if err := cur.Write(u); err != nil {
			return r.fail(newFatalError(ErrStream, err))
		}
	}

	if err := cur.Close(); err != nil {
		return r.fail(newFatalError(ErrStream, err))
	}
	return &Result{
		Status:  Success,
		Units:   r.units,
		Matched: r.matched,
		Errors:  r.soft,
	}
}

func (r *run) fail(err error) *Result {
	return &Result{
		Status: Failed,
		Units:  r.units,
		Errors: []error{err},
	}
}

// substituter binds a matcher to a policy for one run.
type substituter struct {
	*Matcher
	policy Policy
}

func (s *substituter) Replace(field string, v Value) string {
	return s.policy.Apply(field, v)
}

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, &FatalError{Err: ErrCancelled, Cause: err}
	}
	return c.r.Read(p)
}
