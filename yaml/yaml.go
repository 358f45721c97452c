// Package yaml provides a YAML codec for scrub pipelines.
//
// Each document in the stream is one unit. Documents are decoded into
// yaml.Node trees, so key order and comments survive; indentation is
// normalised to two spaces on output.
//
//	p, err := scrub.NewPipeline(scrub.WithCodec(yaml.New()))
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zoobzio/scrub"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements scrub.Codec for YAML.
type yamlCodec struct {
	indent int
}

// New returns a YAML codec.
func New() scrub.Codec {
	return &yamlCodec{indent: 2}
}

// Format returns scrub.FormatYAML.
func (c *yamlCodec) Format() scrub.Format {
	return scrub.FormatYAML
}

// Open never reads; an empty stream has zero units.
func (c *yamlCodec) Open(src io.Reader, dst io.Writer) (scrub.Cursor, error) {
	enc := yaml.NewEncoder(dst)
	enc.SetIndent(c.indent)
	rd := &readErr{r: src}
	return &cursor{src: rd, dec: yaml.NewDecoder(rd), enc: enc}, nil
}

// readErr remembers the last read failure, which the YAML decoder reports
// only as text.
type readErr struct {
	r   io.Reader
	err error
}

func (r *readErr) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

type cursor struct {
	src   *readErr
	dec   *yaml.Decoder
	enc   *yaml.Encoder
	units int
}

func (c *cursor) Next() (scrub.Unit, error) {
	var doc yaml.Node
	if err := c.dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, c.fatal(err)
	}
	c.units++

	u := &document{node: &doc}
	root := u.root()
	if root == nil || (root.Kind != yaml.MappingNode && root.Kind != yaml.SequenceNode) {
		return u, &scrub.StructuralError{
			Err:   scrub.ErrNotObject,
			Unit:  c.units,
			Line:  doc.Line,
			Cause: errors.New("document root is a scalar"),
		}
	}
	return u, nil
}

func (c *cursor) Write(u scrub.Unit) error {
	d, ok := u.(*document)
	if !ok {
		return fmt.Errorf("yaml: cannot write %T", u)
	}
	return c.enc.Encode(d.node)
}

func (c *cursor) Close() error {
	return c.enc.Close()
}

// document is one YAML document.
type document struct {
	node *yaml.Node
	hits []string
}

func (d *document) root() *yaml.Node {
	if d.node.Kind == yaml.DocumentNode && len(d.node.Content) > 0 {
		return d.node.Content[0]
	}
	return nil
}

// Rewrite replaces matched mapping values. A root sequence is transparent:
// each mapping item is addressed as if it were the root.
func (d *document) Rewrite(s scrub.Substituter) ([]string, error) {
	d.hits = nil
	root := d.root()
	if root == nil {
		return nil, nil
	}
	if err := d.walk(root, nil, s); err != nil {
		return nil, err
	}
	return d.hits, nil
}

func (d *document) walk(n *yaml.Node, path []string, s scrub.Substituter) error {
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if err := d.walk(item, path, s); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				continue
			}
			p := append(path[:len(path):len(path)], key.Value)

			if field, ok := s.Match(p); ok {
				v, err := value(val)
				if err != nil {
					return err
				}
				n.Content[i+1] = replacement(val, s.Replace(field, v))
				d.hits = appendUnique(d.hits, field)
				continue
			}
			if s.Descend(p) {
				if err := d.walk(val, p, s); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// value converts a node into the policy's view of it.
func value(n *yaml.Node) (scrub.Value, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		raw, err := yaml.Marshal(n)
		if err != nil {
			return scrub.Value{}, err
		}
		kind := scrub.KindObject
		if n.Kind == yaml.SequenceNode {
			kind = scrub.KindArray
		}
		return scrub.Value{Kind: kind, Raw: strings.TrimRight(string(raw), "\n")}, nil
	}

	v := scrub.Value{Kind: scrub.KindString, Raw: n.Value}
	switch n.ShortTag() {
	case "!!int", "!!float":
		v.Kind = scrub.KindNumber
	case "!!bool":
		v.Kind = scrub.KindBool
	case "!!null":
		v.Kind = scrub.KindNull
	}
	return v, nil
}

// replacement builds a string scalar carrying the replaced node's anchor and
// comments, so aliases to it still resolve.
func replacement(old *yaml.Node, s string) *yaml.Node {
	return &yaml.Node{
		Kind:        yaml.ScalarNode,
		Tag:         "!!str",
		Value:       s,
		Anchor:      old.Anchor,
		HeadComment: old.HeadComment,
		LineComment: old.LineComment,
		FootComment: old.FootComment,
	}
}

// fatal classifies a decode failure as a stream or syntax error.
func (c *cursor) fatal(err error) error {
	if c.src.err != nil {
		var fe *scrub.FatalError
		if errors.As(c.src.err, &fe) {
			return fe
		}
		return &scrub.FatalError{Err: scrub.ErrStream, Cause: c.src.err}
	}
	return &scrub.FatalError{Err: scrub.ErrMalformed, Cause: err}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
