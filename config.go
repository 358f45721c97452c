package scrub

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"unicode/utf8"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config is a policy file: which fields to obfuscate, and how.
//
//	marker: "***"
//	depth: top-level
//	csv:
//	  delimiter: ","
//	  quote: '"'
//	hash_key: "{{.SCRUB_HASH_KEY}}"
//	fields:
//	  - name
//	  - name: email
//	    policy: mask
//	    mask: email
//	  - name: customer_id
//	    policy: hash
type Config struct {
	Marker  string        `yaml:"marker"`
	Depth   Depth         `yaml:"depth"`
	CSV     CSVConfig     `yaml:"csv"`
	HashKey string        `yaml:"hash_key"`
	Fields  []FieldConfig `yaml:"fields"`
}

// CSVConfig holds the delimited-text dialect. An empty delimiter keeps the
// default; "auto" sniffs it from the header.
type CSVConfig struct {
	Delimiter string `yaml:"delimiter"`
	Quote     string `yaml:"quote"`
}

// FieldConfig configures one target field. A bare string in YAML is a field
// with the default policy.
type FieldConfig struct {
	Name   string     `yaml:"name"`
	Policy PolicyKind `yaml:"policy"`
	Mask   MaskType   `yaml:"mask"`
}

// UnmarshalYAML accepts either a scalar field name or a mapping.
func (f *FieldConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name = node.Value
		return nil
	}
	type plain FieldConfig
	return node.Decode((*plain)(f))
}

// DefaultConfig returns the settings applied where a policy file is silent.
func DefaultConfig() Config {
	return Config{
		Marker: DefaultMarker,
		Depth:  DepthTopLevel,
		CSV:    CSVConfig{Delimiter: ",", Quote: `"`},
	}
}

// LoadConfig reads and parses a policy file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig expands {{.ENV_VAR}} references, decodes the YAML, fills
// defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	defaults := DefaultConfig()
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	for i := range cfg.Fields {
		if cfg.Fields[i].Policy == "" {
			cfg.Fields[i].Policy = PolicyRedact
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv substitutes environment variables using template syntax, which
// leaves literal $ untouched. Missing variables expand to the empty string.
// Input that is not a valid template is returned as is.
func expandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := bytes.IndexByte([]byte(kv), '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if !IsValidDepth(c.Depth) {
		return newConfigError(ErrInvalidDepth, "depth", string(c.Depth))
	}
	if _, err := c.csvOptions(); err != nil {
		return err
	}
	if len(c.Fields) == 0 {
		return newConfigError(ErrEmptyFields, "fields", "")
	}

	seen := make(map[string]bool, len(c.Fields))
	for i, f := range c.Fields {
		setting := fmt.Sprintf("fields[%d]", i)
		if f.Name == "" {
			return newConfigError(ErrInvalidField, setting+".name", "")
		}
		if seen[f.Name] {
			return newConfigError(ErrInvalidField, setting+".name", f.Name)
		}
		seen[f.Name] = true

		if !IsValidPolicyKind(f.Policy) {
			return newConfigError(ErrInvalidPolicy, setting+".policy", string(f.Policy))
		}
		if f.Policy == PolicyMask && !IsValidMaskType(f.Mask) {
			return newConfigError(ErrInvalidPolicy, setting+".mask", string(f.Mask))
		}
	}

	if len(c.HashKey) > 64 {
		return newConfigError(ErrInvalidKey, "hash_key", "")
	}
	return nil
}

// FieldNames returns the configured field names in file order.
func (c *Config) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Request builds a request over src using the configured fields.
func (c *Config) Request(src io.Reader, format Format) Request {
	return Request{Source: src, Format: format, Fields: c.FieldNames()}
}

// Options converts the configuration into pipeline options.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	csv, _ := c.csvOptions()
	policy, err := c.policy()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithMarker(c.Marker),
		WithDepth(c.Depth),
		WithCSV(csv),
		WithPolicy(policy),
	}, nil
}

// Pipeline builds a pipeline from the configuration. Extra options are
// applied last.
func (c *Config) Pipeline(extra ...Option) (*Pipeline, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return NewPipeline(append(opts, extra...)...)
}

func (c *Config) policy() (Policy, error) {
	redact := Redact(c.Marker)
	var hasher Hasher
	routes := make(map[string]Policy, len(c.Fields))

	for _, f := range c.Fields {
		switch f.Policy {
		case PolicyMask:
			routes[f.Name] = Mask(map[string]MaskType{f.Name: f.Mask}, redact)
		case PolicyHash:
			if hasher == nil {
				h, err := c.hasher()
				if err != nil {
					return nil, err
				}
				hasher = h
			}
			routes[f.Name] = Hash(hasher)
		default:
			routes[f.Name] = redact
		}
	}
	return PerField(routes, redact), nil
}

// hasher returns keyed BLAKE2b when a hash key is set and SHA-256 otherwise.
func (c *Config) hasher() (Hasher, error) {
	if c.HashKey == "" {
		return SHA256Hasher(), nil
	}
	return BLAKE2b([]byte(c.HashKey))
}

func (c *Config) csvOptions() (CSVOptions, error) {
	var opts CSVOptions
	if c.CSV.Delimiter != "auto" {
		r, err := singleChar(c.CSV.Delimiter)
		if err != nil {
			return opts, newConfigError(ErrInvalidDialect, "csv.delimiter", c.CSV.Delimiter)
		}
		opts.Delimiter = r
	}
	r, err := singleChar(c.CSV.Quote)
	if err != nil {
		return opts, newConfigError(ErrInvalidDialect, "csv.quote", c.CSV.Quote)
	}
	opts.Quote = r
	if _, err := NewCSV(opts); err != nil {
		return opts, newConfigError(ErrInvalidDialect, "csv", c.CSV.Delimiter+c.CSV.Quote)
	}
	return opts, nil
}

func singleChar(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, fmt.Errorf("want one character, got %q", s)
	}
	return r, nil
}
