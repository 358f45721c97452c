package delim

import "bytes"

// AppendField appends value to dst as a single field. The value is quoted
// when force is set or when it contains the delimiter, the quote, a line
// break, or leading/trailing whitespace. Embedded quotes are doubled.
func AppendField(dst []byte, value string, force bool, comma, quote byte) []byte {
	if !force && !needsQuotes(value, comma, quote) {
		return append(dst, value...)
	}
	dst = append(dst, quote)
	for i := 0; i < len(value); i++ {
		if value[i] == quote {
			dst = append(dst, quote)
		}
		dst = append(dst, value[i])
	}
	return append(dst, quote)
}

func needsQuotes(value string, comma, quote byte) bool {
	if value == "" {
		return false
	}
	if value[0] == ' ' || value[0] == '\t' || value[len(value)-1] == ' ' || value[len(value)-1] == '\t' {
		return true
	}
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case comma, quote, '\r', '\n':
			return true
		}
	}
	return false
}

// Candidates are the delimiters Sniff chooses between, in tie-break order.
var Candidates = []byte{',', ';', '\t', '|'}

// Sniff guesses the delimiter of the first line of sample by counting each
// candidate outside quotes. It returns ',' when no candidate occurs.
func Sniff(sample []byte, quote byte) byte {
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	counts := make(map[byte]int, len(Candidates))
	inQuote := false
	for _, c := range sample {
		if c == quote {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			counts[c]++
		}
	}
	best, bestN := byte(','), 0
	for _, c := range Candidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}
