// Package testing provides fixtures and stream helpers for scrub tests.
package testing

import (
	"bytes"
	"fmt"
	"io"
)

// CustomersCSV is a small CSV fixture with a quoted field and CRLF endings.
const CustomersCSV = "id,name,email,ssn,city\r\n" +
	"1,\"Smith, Alice\",alice@example.com,123-45-6789,Oslo\r\n" +
	"2,Bob,bob@example.com,987-65-4321,Rome\r\n"

// CustomersJSON is a pretty-printed array of objects with nested data.
const CustomersJSON = `[
  {
    "id": 1,
    "name": "Alice",
    "email": "alice@example.com",
    "address": {"street": "Main St 1", "city": "Oslo"},
    "orders": [{"card": "4111111111111111", "total": 12.50}]
  },
  {
    "id": 2,
    "name": "Bob",
    "email": null,
    "address": {"street": "Via Roma 2", "city": "Rome"},
    "orders": []
  }
]
`

// EventsNDJSON holds three events; the second line is malformed.
const EventsNDJSON = `{"event":"login","user":"alice","ip":"192.168.1.10"}
{"event":"login","user":
{"event":"logout","user":"bob","ip":"10.0.0.7"}
`

// CustomersYAML is a two-document YAML stream.
const CustomersYAML = `id: 1
name: Alice
email: alice@example.com # primary
---
id: 2
name: Bob
email: bob@example.com
`

// Address is nested inside Customer.
type Address struct {
	Street string `json:"street" pii:"redact"`
	City   string `json:"city"`
}

// Customer is a tagged record matching the fixtures.
type Customer struct {
	ID      int     `json:"id"`
	Name    string  `json:"name" pii:"redact"`
	Email   string  `json:"email" pii:"mask:email"`
	SSN     string  `json:"ssn,omitempty" pii:"hash"`
	Address Address `json:"address"`
}

// GenerateCSV returns a CSV document with a header and rows data rows.
func GenerateCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("id,name,email,note\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "%d,user%d,user%d@example.com,\"note, %d\"\n", i, i, i, i)
	}
	return buf.Bytes()
}

// GenerateJSON returns a JSON array of rows objects.
func GenerateJSON(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < rows; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"id":%d,"name":"user%d","email":"user%d@example.com","tags":["a","b"]}`, i, i, i)
	}
	buf.WriteString("]\n")
	return buf.Bytes()
}

// GenerateNDJSON returns rows newline-delimited objects.
func GenerateNDJSON(rows int) []byte {
	var buf bytes.Buffer
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, `{"id":%d,"name":"user%d","email":"user%d@example.com"}`+"\n", i, i, i)
	}
	return buf.Bytes()
}

// ChunkReader returns a reader yielding at most n bytes per Read.
func ChunkReader(data []byte, n int) io.Reader {
	return &chunkReader{data: data, n: n}
}

type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	size := min(r.n, len(p), len(r.data))
	copy(p, r.data[:size])
	r.data = r.data[size:]
	return size, nil
}

// FailingReader returns data, then err on every later Read.
func FailingReader(data []byte, err error) io.Reader {
	return io.MultiReader(bytes.NewReader(data), &errReader{err: err})
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

// FailingWriter accepts limit bytes, then returns err.
func FailingWriter(limit int, err error) io.Writer {
	return &failingWriter{limit: limit, err: err}
}

type failingWriter struct {
	limit int
	err   error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, w.err
	}
	w.limit -= len(p)
	return len(p), nil
}
