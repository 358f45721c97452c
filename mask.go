package scrub

import (
	"net/netip"
	"strconv"
	"strings"
	"unicode"
)

// MaskType represents a known data format with masking rules.
type MaskType string

const (
	MaskSSN   MaskType = "ssn"   // 123-45-6789 -> ***-**-6789
	MaskEmail MaskType = "email" // alice@example.com -> a***@example.com
	MaskPhone MaskType = "phone" // (555) 123-4567 -> (***) ***-4567
	MaskCard  MaskType = "card"  // 4111111111111111 -> ************1111
	MaskIP    MaskType = "ip"    // 192.168.1.100 -> 192.168.xxx.xxx
	MaskUUID  MaskType = "uuid"  // 550e8400-e29b-41d4-a716-446655440000 -> 550e8400-****-****-****-************
	MaskIBAN  MaskType = "iban"  // GB82WEST12345698765432 -> GB82**************5432
	MaskName  MaskType = "name"  // John Smith -> J*** S****
)

// Masker applies content-aware masking to a single value.
type Masker interface {
	Mask(value string) string
}

// MaskerFunc adapts a function to the Masker interface.
type MaskerFunc func(value string) string

// Mask calls f(value).
func (f MaskerFunc) Mask(value string) string {
	return f(value)
}

// builtinMaskers returns the masker for every builtin MaskType.
func builtinMaskers() map[MaskType]Masker {
	return map[MaskType]Masker{
		MaskSSN:   MaskerFunc(maskSSN),
		MaskEmail: MaskerFunc(maskEmail),
		MaskPhone: MaskerFunc(maskPhone),
		MaskCard:  MaskerFunc(maskCard),
		MaskIP:    MaskerFunc(maskIP),
		MaskUUID:  MaskerFunc(maskUUID),
		MaskIBAN:  MaskerFunc(maskIBAN),
		MaskName:  MaskerFunc(maskName),
	}
}

// BuiltinMasker returns the builtin masker for mt.
func BuiltinMasker(mt MaskType) (Masker, bool) {
	m, ok := builtinMaskers()[mt]
	return m, ok
}

// stars returns one '*' per rune of s.
func stars(s string) string {
	return strings.Repeat("*", len([]rune(s)))
}

// digits returns only the digit characters of s.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func maskSSN(value string) string {
	d := digits(value)
	if len(d) < 4 {
		return stars(value)
	}
	return "***-**-" + d[len(d)-4:]
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 1 {
		return stars(value)
	}
	first := []rune(value[:at])[0]
	return string(first) + "***" + value[at:]
}

func maskPhone(value string) string {
	d := digits(value)
	if len(d) < 4 {
		return stars(value)
	}
	last4 := d[len(d)-4:]
	switch {
	case strings.HasPrefix(value, "(") && len(d) >= 10:
		return "(***) ***-" + last4
	case len(d) >= 10:
		return "***-***-" + last4
	default:
		return "***-" + last4
	}
}

func maskCard(value string) string {
	d := digits(value)
	if len(d) < 4 {
		return stars(value)
	}
	last4 := d[len(d)-4:]

	var sep string
	switch {
	case strings.Contains(value, " "):
		sep = " "
	case strings.Contains(value, "-"):
		sep = "-"
	default:
		return strings.Repeat("*", len(d)-4) + last4
	}

	groups := make([]string, (len(d)-4+3)/4, (len(d)-4+3)/4+1)
	for i := range groups {
		groups[i] = "****"
	}
	return strings.Join(append(groups, last4), sep)
}

// maskIP keeps the network half of an address: the first two IPv4 octets,
// or the first four IPv6 groups.
func maskIP(value string) string {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return stars(value)
	}
	if addr.Is4() {
		b := addr.As4()
		return strconv.Itoa(int(b[0])) + "." + strconv.Itoa(int(b[1])) + ".xxx.xxx"
	}
	groups := strings.Split(addr.StringExpanded(), ":")
	return strings.Join(groups[:4], ":") + ":xxxx:xxxx:xxxx:xxxx"
}

func maskUUID(value string) string {
	parts := strings.Split(value, "-")
	if len(parts) != 5 {
		return stars(value)
	}
	return parts[0] + "-****-****-****-************"
}

func maskIBAN(value string) string {
	if len(value) <= 8 {
		return stars(value)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func maskName(value string) string {
	words := strings.Fields(value)
	for i, w := range words {
		r := []rune(w)
		words[i] = string(r[0]) + strings.Repeat("*", len(r)-1)
	}
	return strings.Join(words, " ")
}
