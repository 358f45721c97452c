package scrub

import (
	"path/filepath"
	"strings"
)

// Format identifies the structural format of a stream.
type Format string

const (
	// FormatCSV is comma-separated values with a header row.
	FormatCSV Format = "csv"

	// FormatTSV is tab-separated values with a header row.
	FormatTSV Format = "tsv"

	// FormatJSON is a single JSON object or an array of objects.
	FormatJSON Format = "json"

	// FormatNDJSON is newline-delimited JSON, one value per line.
	FormatNDJSON Format = "ndjson"

	// FormatYAML is a YAML stream. Its codec lives in the yaml subpackage.
	FormatYAML Format = "yaml"
)

// extensions maps lower-cased file extensions to formats.
var extensions = map[string]Format{
	".csv":    FormatCSV,
	".tsv":    FormatTSV,
	".json":   FormatJSON,
	".jsonl":  FormatNDJSON,
	".ndjson": FormatNDJSON,
	".yaml":   FormatYAML,
	".yml":    FormatYAML,
}

// FormatFromPath detects a format from a file name or object key extension.
// The match is case-insensitive. It returns false for unknown extensions.
func FormatFromPath(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Depth selects how requested field names are matched inside nested data.
type Depth string

const (
	// DepthTopLevel matches only top-level keys (and CSV header names).
	DepthTopLevel Depth = "top-level"

	// DepthRecursive matches a key name at any nesting depth.
	DepthRecursive Depth = "recursive"

	// DepthPath treats requested fields as dotted key paths (address.city).
	// Arrays are transparent: orders.card matches card in every element.
	DepthPath Depth = "path"
)

// PolicyKind names a builtin policy in configuration files.
type PolicyKind string

const (
	PolicyRedact PolicyKind = "redact"
	PolicyMask   PolicyKind = "mask"
	PolicyHash   PolicyKind = "hash"
)

// validDepths contains all valid matching depths.
var validDepths = map[Depth]bool{
	DepthTopLevel:  true,
	DepthRecursive: true,
	DepthPath:      true,
}

// validPolicyKinds contains all valid policy kinds.
var validPolicyKinds = map[PolicyKind]bool{
	PolicyRedact: true,
	PolicyMask:   true,
	PolicyHash:   true,
}

// validMaskTypes contains all valid mask types.
var validMaskTypes = map[MaskType]bool{
	MaskSSN:   true,
	MaskEmail: true,
	MaskPhone: true,
	MaskCard:  true,
	MaskIP:    true,
	MaskUUID:  true,
	MaskIBAN:  true,
	MaskName:  true,
}

// IsValidDepth returns true if d is a known matching depth.
func IsValidDepth(d Depth) bool {
	return validDepths[d]
}

// IsValidPolicyKind returns true if k is a known policy kind.
func IsValidPolicyKind(k PolicyKind) bool {
	return validPolicyKinds[k]
}

// IsValidMaskType returns true if the type is a known mask type.
func IsValidMaskType(mt MaskType) bool {
	return validMaskTypes[mt]
}
