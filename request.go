package scrub

import (
	"io"
	"strings"
)

// Request describes one obfuscation run. It is a value: the pipeline never
// modifies it.
type Request struct {
	// Source is read once, front to back.
	Source io.Reader

	// Format selects the codec.
	Format Format

	// Fields names the values to obfuscate. Names are case-sensitive;
	// duplicates collapse.
	Fields []string
}

// fieldSet validates the request against the registered codecs and returns
// its distinct field names in request order.
func (r Request) fieldSet(codecs map[Format]Codec) ([]string, Codec, error) {
	if r.Source == nil {
		return nil, nil, newValidationError(ErrNilSource, "Source", "")
	}
	codec, ok := codecs[r.Format]
	if !ok {
		return nil, nil, newValidationError(ErrUnsupportedFormat, "Format", string(r.Format))
	}
	if len(r.Fields) == 0 {
		return nil, nil, newValidationError(ErrEmptyFields, "Fields", "")
	}

	seen := make(map[string]struct{}, len(r.Fields))
	fields := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if strings.TrimSpace(f) == "" {
			return nil, nil, newValidationError(ErrInvalidField, "Fields", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields, codec, nil
}

// ParseFieldList splits a comma-separated field list, trimming whitespace and
// dropping empty entries.
func ParseFieldList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if f := strings.TrimSpace(part); f != "" {
			out = append(out, f)
		}
	}
	return out
}
