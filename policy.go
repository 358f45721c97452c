package scrub

// DefaultMarker is the replacement used by the default policy.
const DefaultMarker = "***"

// Kind is the original type of a matched value.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindObject
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Value is a matched value handed to a Policy.
type Value struct {
	Kind Kind

	// Raw is the decoded text for strings and the source literal otherwise
	// (e.g. 30, true, null, {"a":1}).
	Raw string
}

// Policy decides what replaces a matched value.
// Implementations must be deterministic and safe for concurrent use.
//
// Replacements are always strings: a number or boolean that is obfuscated
// becomes a string in typed formats.
type Policy interface {
	Apply(field string, v Value) string
}

// redactPolicy replaces every value with a fixed marker.
type redactPolicy struct {
	marker string
}

// Redact returns a policy that replaces every value with marker, whatever
// its content or type.
func Redact(marker string) Policy {
	return &redactPolicy{marker: marker}
}

func (p *redactPolicy) Apply(_ string, _ Value) string {
	return p.marker
}

// maskPolicy applies content-aware maskers by field.
type maskPolicy struct {
	maskers  map[string]Masker
	fallback Policy
}

// Mask returns a policy applying the builtin masker named by types[field].
// Fields without a type, unknown types, and non-scalar or null values go to
// fallback.
func Mask(types map[string]MaskType, fallback Policy) Policy {
	builtin := builtinMaskers()
	p := &maskPolicy{
		maskers:  make(map[string]Masker, len(types)),
		fallback: orRedact(fallback),
	}
	for field, mt := range types {
		if m, ok := builtin[mt]; ok {
			p.maskers[field] = m
		}
	}
	return p
}

func (p *maskPolicy) Apply(field string, v Value) string {
	m, ok := p.maskers[field]
	if !ok || !isScalar(v) {
		return p.fallback.Apply(field, v)
	}
	return m.Mask(v.Raw)
}

// hashPolicy replaces values with a deterministic digest.
type hashPolicy struct {
	hasher   Hasher
	fallback Policy
}

// Hash returns a policy replacing every scalar value with its digest under h.
// Equal inputs yield equal pseudonyms, so joins across files survive.
// Null values become DefaultMarker.
func Hash(h Hasher) Policy {
	return &hashPolicy{hasher: h, fallback: Redact(DefaultMarker)}
}

func (p *hashPolicy) Apply(field string, v Value) string {
	if v.Kind == KindNull {
		return p.fallback.Apply(field, v)
	}
	return p.hasher.Hash([]byte(v.Raw))
}

// perFieldPolicy routes each field to its own policy.
type perFieldPolicy struct {
	policies map[string]Policy
	fallback Policy
}

// PerField returns a policy that dispatches by field name, using fallback
// for fields without an entry. A nil fallback redacts with DefaultMarker.
func PerField(policies map[string]Policy, fallback Policy) Policy {
	cp := make(map[string]Policy, len(policies))
	for k, v := range policies {
		cp[k] = v
	}
	return &perFieldPolicy{policies: cp, fallback: orRedact(fallback)}
}

func (p *perFieldPolicy) Apply(field string, v Value) string {
	if pol, ok := p.policies[field]; ok {
		return pol.Apply(field, v)
	}
	return p.fallback.Apply(field, v)
}

func orRedact(p Policy) Policy {
	if p == nil {
		return Redact(DefaultMarker)
	}
	return p
}

func isScalar(v Value) bool {
	switch v.Kind {
	case KindString, KindNumber, KindBool:
		return true
	}
	return false
}
