package scrub

import "testing"

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"users.csv", FormatCSV, true},
		{"s3://bucket/raw/USERS.CSV", FormatCSV, true},
		{"export.tsv", FormatTSV, true},
		{"data/orders.json", FormatJSON, true},
		{"events.jsonl", FormatNDJSON, true},
		{"events.ndjson", FormatNDJSON, true},
		{"config.yaml", FormatYAML, true},
		{"config.yml", FormatYAML, true},
		{"archive.parquet", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatFromPath(tt.path)
			if got != tt.want || ok != tt.ok {
				t.Errorf("FormatFromPath(%q) = %q, %v, want %q, %v", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsValidDepth(t *testing.T) {
	tests := []struct {
		depth Depth
		want  bool
	}{
		{DepthTopLevel, true},
		{DepthRecursive, true},
		{DepthPath, true},
		{"deep", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			if got := IsValidDepth(tt.depth); got != tt.want {
				t.Errorf("IsValidDepth(%q) = %v, want %v", tt.depth, got, tt.want)
			}
		})
	}
}

func TestIsValidPolicyKind(t *testing.T) {
	tests := []struct {
		kind PolicyKind
		want bool
	}{
		{PolicyRedact, true},
		{PolicyMask, true},
		{PolicyHash, true},
		{"encrypt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := IsValidPolicyKind(tt.kind); got != tt.want {
				t.Errorf("IsValidPolicyKind(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestIsValidMaskType(t *testing.T) {
	tests := []struct {
		mt   MaskType
		want bool
	}{
		{MaskSSN, true},
		{MaskEmail, true},
		{MaskPhone, true},
		{MaskCard, true},
		{MaskIP, true},
		{MaskUUID, true},
		{MaskIBAN, true},
		{MaskName, true},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mt), func(t *testing.T) {
			if got := IsValidMaskType(tt.mt); got != tt.want {
				t.Errorf("IsValidMaskType(%q) = %v, want %v", tt.mt, got, tt.want)
			}
		})
	}
}
