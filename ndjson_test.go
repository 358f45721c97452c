package scrub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDJSON_BadLinesAreSoft(t *testing.T) {
	input := "{\"a\":1}\n\n{\"a\":2}\r\nnot json\n[1]\n{\"b\":3}"
	res := obfuscate(t, newTestPipeline(t), FormatNDJSON, input, "a")

	requireOK(t, res)
	assert.Equal(t, "{\"a\":\"***\"}\n\n{\"a\":\"***\"}\r\nnot json\n[1]\n{\"b\":3}", string(res.Output))
	assert.Equal(t, 5, res.Units)
	assert.Equal(t, map[string]int{"a": 2}, res.Matched)

	require.Len(t, res.Errors, 2)
	var se *StructuralError

	assert.ErrorIs(t, res.Errors[0], ErrMalformed)
	require.ErrorAs(t, res.Errors[0], &se)
	assert.Equal(t, 3, se.Unit)
	assert.Equal(t, 4, se.Line)

	assert.ErrorIs(t, res.Errors[1], ErrNotObject)
	require.ErrorAs(t, res.Errors[1], &se)
	assert.Equal(t, 4, se.Unit)
	assert.Equal(t, 5, se.Line)
}

func TestNDJSON_TrailingBlankLines(t *testing.T) {
	res := obfuscate(t, newTestPipeline(t), FormatNDJSON, "{\"a\":1}\n\n  \n", "a")

	requireOK(t, res)
	assert.Equal(t, "{\"a\":\"***\"}\n\n  \n", string(res.Output))
	assert.Equal(t, 1, res.Units)
}

func TestNDJSON_EmptyStream(t *testing.T) {
	for _, input := range []string{"", "\n", "\r\n\n"} {
		res := obfuscate(t, newTestPipeline(t), FormatNDJSON, input, "a")

		requireOK(t, res)
		assert.Equal(t, input, string(res.Output))
		assert.Zero(t, res.Units)
		assert.Equal(t, []string{"a"}, res.Unmatched)
	}
}

func TestNDJSON_LineFormattingPreserved(t *testing.T) {
	input := "  { \"a\" : 1 , \"b\":[1, 2] }  \n{\"a\":{\"x\":true}}\n"
	res := obfuscate(t, newTestPipeline(t), FormatNDJSON, input, "a")

	requireOK(t, res)
	assert.Equal(t, "  { \"a\" : \"***\" , \"b\":[1, 2] }  \n{\"a\":\"***\"}\n", string(res.Output))
}

func TestNDJSON_Recursive(t *testing.T) {
	p := newTestPipeline(t, WithDepth(DepthRecursive))
	input := "{\"u\":{\"ssn\":\"1\"}}\n{\"list\":[{\"ssn\":\"2\"}],\"ssn\":\"3\"}\n"
	res := obfuscate(t, p, FormatNDJSON, input, "ssn")

	requireOK(t, res)
	assert.Equal(t, "{\"u\":{\"ssn\":\"***\"}}\n{\"list\":[{\"ssn\":\"***\"}],\"ssn\":\"***\"}\n", string(res.Output))
	assert.Equal(t, 2, res.Matched["ssn"])
}

func TestNDJSON_LongLine(t *testing.T) {
	long := make([]byte, 200*1024)
	for i := range long {
		long[i] = 'x'
	}
	input := "{\"pad\":\"" + string(long) + "\",\"a\":1}\n"
	res := obfuscate(t, newTestPipeline(t), FormatNDJSON, input, "a")

	requireOK(t, res)
	assert.Equal(t, "{\"pad\":\""+string(long)+"\",\"a\":\"***\"}\n", string(res.Output))
}

func TestSplitTerminator(t *testing.T) {
	tests := []struct {
		line, body, term string
	}{
		{"abc\n", "abc", "\n"},
		{"abc\r\n", "abc", "\r\n"},
		{"abc", "abc", ""},
		{"\n", "", "\n"},
		{"abc\r", "abc\r", ""},
	}
	for _, tt := range tests {
		body, term := splitTerminator([]byte(tt.line))
		assert.Equal(t, tt.body, string(body), "line %q", tt.line)
		assert.Equal(t, tt.term, string(term), "line %q", tt.line)
	}
}
