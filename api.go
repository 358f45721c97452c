// Package scrub provides streaming field-level obfuscation for structured files.
//
// Given a byte stream, its format and a set of field names, a Pipeline produces
// a structurally faithful copy of the stream in which only the named fields'
// values are replaced. Row order, column order, key order, nesting and all
// other values pass through untouched.
//
// # Formats
//
// Formats are handled by Codec implementations registered with a Pipeline:
//
//   - csv    - delimited rows with a mandatory header (configurable delimiter and quote)
//   - tsv    - tab-delimited rows
//   - json   - a single top-level object, or a top-level array of objects
//   - ndjson - one JSON value per line
//   - yaml   - multi-document YAML (see the yaml subpackage)
//
// # Basic Usage
//
//	p, err := scrub.NewPipeline()
//	if err != nil {
//	    return err
//	}
//
//	res := p.Run(ctx, scrub.Request{
//	    Source: src,
//	    Format: scrub.FormatCSV,
//	    Fields: []string{"email", "phone"},
//	}, dst)
//
//	if err := res.Err(false); err != nil {
//	    return err
//	}
//
// Obfuscate does the same into memory and returns the stream in
// Result.Output. RunAll runs a batch of requests with bounded concurrency.
//
// # Configuration
//
// A YAML policy file (LoadConfig) names the fields and a policy per field.
// Environment variables are expanded with {{.NAME}} syntax. FieldsOf and
// ConfigOf derive the same configuration from pii struct tags.
//
// # Streaming
//
// Codecs expose a pull-based Cursor: one Unit (a CSV row, a JSON object, an
// NDJSON line, a YAML mapping) is parsed, rewritten and written before the
// next is read. Memory is bounded by the largest unit, not the file.
//
// # Errors
//
// Errors never escape Run. Validation failures and fatal parse or stream
// errors produce a Failed result; per-unit structural problems (a CSV row with
// the wrong column count, a malformed NDJSON line) are collected as soft
// errors and the unit is passed through unobfuscated. Requested fields that
// never matched are reported in Result.Unmatched.
//
// # Policies
//
// The replacement value is decided by a Policy:
//
//   - Redact(marker) - a fixed marker regardless of value (the default, "***")
//   - Mask(types, fallback) - content-aware masking (email, ssn, card, ...)
//   - Hash(hasher) - deterministic pseudonyms (sha256, sha512, keyed blake2b)
//   - PerField(policies, fallback) - route by field name
//
// Obfuscated JSON values always become strings, whatever their original type.
//
// # Signals
//
// Runs emit capitan signals (scrub.run.start, scrub.run.complete,
// scrub.unit.error, scrub.field.unmatched, scrub.batch.complete) carrying the
// run ID, format and counters. Attach a capitan observer to log or count them.
package scrub
