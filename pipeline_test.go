package scrub

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mattetti/filebuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(opts...)
	require.NoError(t, err)
	return p
}

func obfuscate(t *testing.T, p *Pipeline, format Format, input string, fields ...string) *Result {
	t.Helper()
	return p.Obfuscate(context.Background(), Request{
		Source: strings.NewReader(input),
		Format: format,
		Fields: fields,
	})
}

// requireOK fails the test unless the run succeeded.
func requireOK(t *testing.T, res *Result) {
	t.Helper()
	require.Equal(t, Success, res.Status, "run failed: %v", res.Fatal())
}

// readCounter records whether the pipeline touched the source.
type readCounter struct {
	r     io.Reader
	reads int
}

func (c *readCounter) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestScenario_CSVEmail(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatCSV,
		"name,email\nAlice,a@x.com\nBob,b@x.com\n", "email")

	requireOK(t, res)
	assert.Equal(t, "name,email\nAlice,***\nBob,***\n", string(res.Output))
	assert.Equal(t, map[string]int{"email": 2}, res.Matched)
	assert.Empty(t, res.Unmatched)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.Units)
}

func TestScenario_JSONAge(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatJSON,
		`[{"name":"Alice","age":30},{"name":"Bob","age":40}]`, "age")

	requireOK(t, res)
	assert.Equal(t, `[{"name":"Alice","age":"***"},{"name":"Bob","age":"***"}]`, string(res.Output))
	assert.Equal(t, map[string]int{"age": 2}, res.Matched)
	assert.Equal(t, 2, res.Units)
}

func TestScenario_CSVUnmatched(t *testing.T) {
	input := "name,email\nAlice,a@x.com\nBob,b@x.com\n"
	res := obfuscate(t, newTestPipeline(t), FormatCSV, input, "ssn")

	requireOK(t, res)
	assert.Equal(t, input, string(res.Output))
	assert.Equal(t, []string{"ssn"}, res.Unmatched)
	assert.Empty(t, res.Matched)
}

func TestRun_Validation(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		name   string
		format Format
		fields []string
		nilSrc bool
		nilDst bool
		want   error
	}{
		{name: "nil source", format: FormatCSV, fields: []string{"a"}, nilSrc: true, want: ErrNilSource},
		{name: "unsupported format", format: "parquet", fields: []string{"a"}, want: ErrUnsupportedFormat},
		{name: "yaml not registered", format: FormatYAML, fields: []string{"a"}, want: ErrUnsupportedFormat},
		{name: "no fields", format: FormatCSV, want: ErrEmptyFields},
		{name: "blank field", format: FormatJSON, fields: []string{"a", " "}, want: ErrInvalidField},
		{name: "nil sink", format: FormatCSV, fields: []string{"a"}, nilDst: true, want: ErrNilSink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &readCounter{r: strings.NewReader("a,b\n1,2\n")}
			req := Request{Source: src, Format: tt.format, Fields: tt.fields}
			if tt.nilSrc {
				req.Source = nil
			}
			var dst io.Writer = filebuffer.New(nil)
			if tt.nilDst {
				dst = nil
			}

			res := p.Run(context.Background(), req, dst)

			assert.Equal(t, Failed, res.Status)
			require.Len(t, res.Errors, 1)
			assert.ErrorIs(t, res.Errors[0], tt.want)
			var ve *ValidationError
			assert.ErrorAs(t, res.Errors[0], &ve)
			assert.Zero(t, src.reads, "source must not be read")
			assert.Empty(t, res.Matched)
		})
	}
}

func TestRun_WritesToSink(t *testing.T) {
	in := filebuffer.New([]byte("id,ssn\n1,123-45-6789\n"))
	out := filebuffer.New(nil)

	res := newTestPipeline(t).Run(context.Background(), Request{
		Source: in,
		Format: FormatCSV,
		Fields: []string{"ssn"},
	}, out)

	requireOK(t, res)
	assert.Equal(t, "id,ssn\n1,***\n", out.Buff.String())
	assert.Nil(t, res.Output, "Run leaves output in the sink")
}

func TestRun_DuplicateFieldsCollapse(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatCSV,
		"name,email\nAlice,a@x.com\n", "email", "email")

	requireOK(t, res)
	assert.Equal(t, map[string]int{"email": 1}, res.Matched)
	assert.Empty(t, res.Unmatched)
}

func TestRun_UnmatchedSorted(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatJSON,
		`{"email":"a@x.com"}`, "zeta", "email", "alpha")

	requireOK(t, res)
	assert.Equal(t, []string{"alpha", "zeta"}, res.Unmatched)
	assert.Equal(t, map[string]int{"email": 1}, res.Matched)

	err := res.Err(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnmatched)
	var ue *UnmatchedFieldError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "alpha", ue.Field)

	assert.NoError(t, res.Err(false))
}

func TestRun_MatchedAndUnmatchedPartitionFields(t *testing.T) {
	fields := []string{"name", "email", "phone", "ssn"}
	res := obfuscate(t, newTestPipeline(t), FormatCSV,
		"name,email,city\nAlice,a@x.com,Oslo\n", fields...)

	requireOK(t, res)
	for _, f := range fields {
		_, matched := res.Matched[f]
		assert.NotEqual(t, matched, contains(res.Unmatched, f), "field %s", f)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestRun_Idempotent(t *testing.T) {
	p := newTestPipeline(t)
	inputs := []struct {
		format Format
		input  string
	}{
		{FormatCSV, "name,email\nAlice,a@x.com\n\"Bob, Jr\",\"b@x.com\"\r\n"},
		{FormatJSON, "[\n  {\"email\": \"a@x.com\", \"n\": 1},\n  {\"email\": null}\n]\n"},
		{FormatNDJSON, "{\"email\":\"a@x.com\"}\n{\"other\":true}\n"},
	}

	for _, in := range inputs {
		t.Run(string(in.format), func(t *testing.T) {
			first := obfuscate(t, p, in.format, in.input, "email")
			requireOK(t, first)
			second := obfuscate(t, p, in.format, string(first.Output), "email")
			requireOK(t, second)
			assert.Equal(t, string(first.Output), string(second.Output))
		})
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &readCounter{r: strings.NewReader("a\n1\n")}
	res := newTestPipeline(t).Obfuscate(ctx, Request{Source: src, Format: FormatCSV, Fields: []string{"a"}})

	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Fatal(), ErrCancelled)
	assert.ErrorIs(t, res.Fatal(), context.Canceled)
	assert.Zero(t, src.reads)
	assert.Nil(t, res.Output)
}

// cancelAfterFirstRead cancels its context once the first chunk is served.
type cancelAfterFirstRead struct {
	cancel context.CancelFunc
	chunks []string
}

func (r *cancelAfterFirstRead) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	r.cancel()
	return n, nil
}

func TestRun_CancelledMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &cancelAfterFirstRead{
		cancel: cancel,
		chunks: []string{"name,email\nAlice,a@x.com\n", "Bob,b@x.com\n"},
	}
	res := newTestPipeline(t).Obfuscate(ctx, Request{Source: src, Format: FormatCSV, Fields: []string{"email"}})

	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Fatal(), ErrCancelled)
	assert.Nil(t, res.Output)
}

func TestRun_SourceFailure(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON, FormatNDJSON} {
		t.Run(string(format), func(t *testing.T) {
			res := newTestPipeline(t).Obfuscate(context.Background(), Request{
				Source: failingReader{err: io.ErrClosedPipe},
				Format: format,
				Fields: []string{"a"},
			})

			assert.Equal(t, Failed, res.Status)
			assert.ErrorIs(t, res.Fatal(), ErrStream)
			assert.ErrorIs(t, res.Fatal(), io.ErrClosedPipe)
			var fe *FatalError
			assert.ErrorAs(t, res.Fatal(), &fe)
		})
	}
}

func TestRun_SinkFailure(t *testing.T) {
	res := newTestPipeline(t).Run(context.Background(), Request{
		Source: strings.NewReader("a,b\n1,2\n"),
		Format: FormatCSV,
		Fields: []string{"a"},
	}, failingWriter{err: io.ErrClosedPipe})

	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Fatal(), ErrStream)
	assert.Empty(t, res.Matched, "a failed run reports only its error")
}

func TestRun_FatalCarriesOnlyTheError(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatJSON, `[{"a":1},{"a":`, "a")

	assert.Equal(t, Failed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrMalformed)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Unmatched)
	assert.Nil(t, res.Output)
	assert.Error(t, res.Err(false))
}

func TestRun_RunIDs(t *testing.T) {
	p := newTestPipeline(t)
	a := obfuscate(t, p, FormatCSV, "a\n1\n", "a")
	b := obfuscate(t, p, FormatCSV, "a\n1\n", "a")

	_, err := uuid.Parse(a.RunID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, FormatCSV, a.Format)
	assert.Positive(t, a.Duration)
}

func TestRun_Concurrent(t *testing.T) {
	p := newTestPipeline(t)
	var wg sync.WaitGroup
	results := make([]*Result, 16)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Obfuscate(context.Background(), Request{
				Source: strings.NewReader("name,email\nAlice,a@x.com\nBob,b@x.com\n"),
				Format: FormatCSV,
				Fields: []string{"email"},
			})
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		requireOK(t, res)
		assert.Equal(t, "name,email\nAlice,***\nBob,***\n", string(res.Output))
		assert.Equal(t, 2, res.Matched["email"])
	}
}

func TestPipelineOptions(t *testing.T) {
	p := newTestPipeline(t, WithMarker("[gone]"))
	res := obfuscate(t, p, FormatCSV, "a,b\n1,2\n", "b")
	requireOK(t, res)
	assert.Equal(t, "a,b\n1,[gone]\n", string(res.Output))

	p = newTestPipeline(t, WithMarker("ignored"), WithPolicy(Mask(map[string]MaskType{"b": MaskEmail}, nil)))
	res = obfuscate(t, p, FormatCSV, "a,b\n1,bob@x.com\n", "b")
	requireOK(t, res)
	assert.Equal(t, "a,b\n1,b***@x.com\n", string(res.Output))

	_, err := NewPipeline(WithDepth("deep"))
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = NewPipeline(WithCSV(CSVOptions{Delimiter: '"'}))
	assert.ErrorIs(t, err, ErrInvalidDialect)
}

func TestPipeline_Formats(t *testing.T) {
	p := newTestPipeline(t)
	assert.Equal(t, []Format{FormatCSV, FormatJSON, FormatNDJSON, FormatTSV}, p.Formats())
}

// renamedCodec registers NDJSON under another format name.
type renamedCodec struct{ Codec }

func (renamedCodec) Format() Format { return "jsonl" }

func TestPipeline_WithCodec(t *testing.T) {
	p := newTestPipeline(t, WithCodec(renamedCodec{NewNDJSON()}))
	res := obfuscate(t, p, "jsonl", "{\"a\":1}\n", "a")
	requireOK(t, res)
	assert.Equal(t, "{\"a\":\"***\"}\n", string(res.Output))
}

func TestResult_StatusString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failed", Failed.String())
}

func TestResult_Fatal(t *testing.T) {
	ok := &Result{Status: Success, Errors: []error{errors.New("soft")}}
	assert.Nil(t, ok.Fatal())
	assert.True(t, ok.OK())
	assert.NoError(t, ok.Err(true))
}

func TestParseFieldList(t *testing.T) {
	assert.Equal(t, []string{"name", "email", "ssn"}, ParseFieldList(" name, email ,,ssn "))
	assert.Empty(t, ParseFieldList(""))
	assert.Empty(t, ParseFieldList(" , "))
}
