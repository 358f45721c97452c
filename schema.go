package scrub

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"
)

func init() {
	sentinel.Tag("pii")
}

// FieldsOf derives target fields from the pii struct tags of T.
//
//	type Customer struct {
//	    ID      string  `json:"id"`
//	    Email   string  `json:"email" pii:"mask:email"`
//	    SSN     string  `json:"ssn" pii:"hash"`
//	    Note    string  `json:"note" pii:"redact"`
//	    Address Address `json:"address"`
//	}
//
// Field names follow the json tag, falling back to the Go field name.
// Tagged fields inside nested structs are returned as dotted paths
// ("address.street"), for use with DepthPath.
func FieldsOf[T any]() ([]FieldConfig, error) {
	rt := reflect.TypeFor[T]()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("FieldsOf: %s is not a struct", rt)
	}

	meta := sentinel.Scan[T]()
	var out []FieldConfig
	seen := map[reflect.Type]bool{rt: true}

	for _, field := range meta.Fields {
		sf := rt.FieldByIndex(field.Index)
		name, ok := jsonName(sf)
		if !ok {
			continue
		}
		if tag, ok := field.Tags["pii"]; ok {
			fc, err := parsePIITag(name, tag)
			if err != nil {
				return nil, err
			}
			out = append(out, fc)
			continue
		}
		if err := collectNested(&out, sf.Type, name, seen); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ConfigOf returns DefaultConfig with the fields of T. Depth is DepthPath
// when any field is nested.
func ConfigOf[T any]() (*Config, error) {
	fields, err := FieldsOf[T]()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Fields = fields
	for _, f := range fields {
		if strings.Contains(f.Name, ".") {
			cfg.Depth = DepthPath
			break
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// collectNested walks struct types reachable through pointers and slices.
func collectNested(out *[]FieldConfig, t reflect.Type, prefix string, seen map[reflect.Type]bool) error {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || seen[t] {
		return nil
	}
	seen[t] = true
	defer delete(seen, t)

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, ok := jsonName(sf)
		if !ok {
			continue
		}
		path := prefix + "." + name
		if tag, ok := sf.Tag.Lookup("pii"); ok {
			fc, err := parsePIITag(path, tag)
			if err != nil {
				return err
			}
			*out = append(*out, fc)
			continue
		}
		if err := collectNested(out, sf.Type, path, seen); err != nil {
			return err
		}
	}
	return nil
}

// jsonName returns the serialized name of sf, or false when it is skipped.
func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return sf.Name, true
}

// parsePIITag reads "redact", "hash" or "mask:<type>".
func parsePIITag(name, tag string) (FieldConfig, error) {
	kind, arg, _ := strings.Cut(tag, ":")
	fc := FieldConfig{Name: name, Policy: PolicyKind(kind)}
	switch fc.Policy {
	case "", PolicyRedact:
		fc.Policy = PolicyRedact
	case PolicyHash:
	case PolicyMask:
		fc.Mask = MaskType(arg)
		if !IsValidMaskType(fc.Mask) {
			return fc, newConfigError(ErrInvalidPolicy, "pii tag on "+name, tag)
		}
	default:
		return fc, newConfigError(ErrInvalidPolicy, "pii tag on "+name, tag)
	}
	return fc, nil
}
