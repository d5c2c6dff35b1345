// Package schema loads block schema files.
//
// Schema files are YAML (JSON is accepted as a YAML subset). They are read
// through the yaml.v3 Node API rather than into maps so that rule-set key
// order survives: the validator reports missing fields in declaration order.
//
// Layout:
//
//	tools:
//	  paragraph:
//	    text: {type: string, allowedTags: "b,i,a[href]"}
//	  header:
//	    text: string
//	    level: {canBeOnly: [1, 2, 3]}
//	customTags:
//	  - tag: x-note
//	    contentSet: Inline
//	    contentModel: Inline
//	    attributeCollection: Core
//	    attributes:
//	      kind: {type: Enum, options: [info, warn]}
package schema

import (
	"fmt"
	"os"

	"github.com/solatis/blockkeeper/internal/types"
	"gopkg.in/yaml.v3"
)

// Load reads and interprets a schema file.
func Load(path string) (types.SchemaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SchemaConfig{}, fmt.Errorf("read schema %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return types.SchemaConfig{}, fmt.Errorf("schema %s: %w", path, err)
	}
	return cfg, nil
}

// Parse interprets schema file contents.
func Parse(data []byte) (types.SchemaConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.SchemaConfig{}, types.ConfigErrorf("parse: %v", err)
	}
	root, err := FromYAML(&doc)
	if err != nil {
		return types.SchemaConfig{}, err
	}
	return ConfigFromNode(root)
}

// FromYAML converts a yaml.v3 node tree into a payload Node, keeping
// mapping order. Scalars are typed by their resolved YAML tag.
func FromYAML(n *yaml.Node) (types.Node, error) {
	return fromYAML(n, 0)
}

func fromYAML(n *yaml.Node, depth int) (types.Node, error) {
	if depth > types.MaxNodeDepth {
		return types.Node{}, types.ErrPayloadTooDeep
	}

	switch n.Kind {
	case 0:
		// empty input
		return types.NullNode(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return types.NullNode(), nil
		}
		return fromYAML(n.Content[0], depth)
	case yaml.SequenceNode:
		items := make([]types.Node, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromYAML(c, depth+1)
			if err != nil {
				return types.Node{}, err
			}
			items = append(items, item)
		}
		return types.SeqNode(items...), nil
	case yaml.MappingNode:
		fields := make([]types.Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return types.Node{}, types.ConfigErrorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := fromYAML(n.Content[i+1], depth+1)
			if err != nil {
				return types.Node{}, err
			}
			fields = append(fields, types.Pair(k.Value, v))
		}
		return types.MapNode(fields...), nil
	case yaml.AliasNode:
		return fromYAML(n.Alias, depth+1)
	case yaml.ScalarNode:
		return scalar(n)
	default:
		return types.Node{}, types.ConfigErrorf("line %d: unsupported YAML node", n.Line)
	}
}

func scalar(n *yaml.Node) (types.Node, error) {
	switch n.ShortTag() {
	case "!!null":
		return types.NullNode(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return types.Node{}, types.ConfigErrorf("line %d: %v", n.Line, err)
		}
		return types.BoolNode(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return types.IntNode(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return types.Node{}, types.ConfigErrorf("line %d: %v", n.Line, err)
		}
		return types.NumberNode(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return types.Node{}, types.ConfigErrorf("line %d: %v", n.Line, err)
		}
		return types.NumberNode(f), nil
	default:
		return types.StringNode(n.Value), nil
	}
}

// ConfigFromNode interprets a decoded schema document.
func ConfigFromNode(root types.Node) (types.SchemaConfig, error) {
	if root.Kind() != types.KindMapping {
		return types.SchemaConfig{}, types.ConfigErrorf("schema root must be a mapping, got %s", root.Kind())
	}

	toolsNode, ok := root.Get("tools")
	if !ok {
		return types.SchemaConfig{}, types.ConfigErrorf("schema has no \"tools\"")
	}
	if toolsNode.Kind() != types.KindMapping {
		return types.SchemaConfig{}, types.ConfigErrorf("\"tools\" must be a mapping, got %s", toolsNode.Kind())
	}

	cfg := types.SchemaConfig{Tools: make(map[string]types.RuleSet, toolsNode.Len())}
	for _, f := range toolsNode.Fields() {
		rs, err := types.RuleSetFromNode(f.Value)
		if err != nil {
			return types.SchemaConfig{}, fmt.Errorf("tool %q: %w", f.Key, err)
		}
		cfg.Tools[f.Key] = rs
	}

	if tagsNode, ok := root.Get("customTags"); ok {
		tags, err := customTags(tagsNode)
		if err != nil {
			return types.SchemaConfig{}, err
		}
		cfg.CustomTags = tags
	}
	return cfg, nil
}

// customTags accepts a list of definitions carrying "tag", or a mapping
// from tag name to definition.
func customTags(n types.Node) ([]types.CustomTagDefinition, error) {
	var out []types.CustomTagDefinition
	switch n.Kind() {
	case types.KindNull:
		return nil, nil
	case types.KindSequence:
		for i, item := range n.Items() {
			def, err := customTag("", item)
			if err != nil {
				return nil, fmt.Errorf("customTags[%d]: %w", i, err)
			}
			out = append(out, def)
		}
	case types.KindMapping:
		for _, f := range n.Fields() {
			def, err := customTag(f.Key, f.Value)
			if err != nil {
				return nil, fmt.Errorf("customTags.%s: %w", f.Key, err)
			}
			out = append(out, def)
		}
	default:
		return nil, types.ConfigErrorf("\"customTags\" must be a list or mapping, got %s", n.Kind())
	}
	return out, nil
}

func customTag(name string, n types.Node) (types.CustomTagDefinition, error) {
	if n.Kind() != types.KindMapping {
		return types.CustomTagDefinition{}, types.ConfigErrorf("definition must be a mapping, got %s", n.Kind())
	}

	def := types.CustomTagDefinition{Tag: name}
	for _, key := range []struct {
		name string
		dst  *string
	}{
		{"tag", &def.Tag},
		{"contentSet", &def.ContentSet},
		{"contentModel", &def.ContentModel},
		{"attributeCollection", &def.AttributeCollection},
	} {
		v, ok := n.Get(key.name)
		if !ok {
			continue
		}
		s, ok := v.Str()
		if !ok {
			return types.CustomTagDefinition{}, types.ConfigErrorf("%q must be a string, got %s", key.name, v.Kind())
		}
		*key.dst = s
	}
	if def.Tag == "" {
		return types.CustomTagDefinition{}, types.ConfigErrorf("missing \"tag\"")
	}

	attrs, ok := n.Get("attributes")
	if !ok || attrs.IsNull() {
		return def, nil
	}
	if attrs.Kind() != types.KindMapping {
		return types.CustomTagDefinition{}, types.ConfigErrorf("\"attributes\" must be a mapping, got %s", attrs.Kind())
	}
	for _, f := range attrs.Fields() {
		spec, err := attributeSpec(f.Value)
		if err != nil {
			return types.CustomTagDefinition{}, fmt.Errorf("attribute %q: %w", f.Key, err)
		}
		def.Attributes = append(def.Attributes, types.AttributeDef{Name: f.Key, Spec: spec})
	}
	return def, nil
}

func attributeSpec(n types.Node) (types.AttributeSpec, error) {
	if s, ok := n.Str(); ok {
		return types.AttributeSpec{Type: s}, nil
	}
	if n.Kind() != types.KindMapping {
		return types.AttributeSpec{}, types.ConfigErrorf("attribute spec must be a type name or mapping, got %s", n.Kind())
	}

	typeNode, _ := n.Get("type")
	typ, ok := typeNode.Str()
	if !ok {
		return types.AttributeSpec{}, types.ConfigErrorf("attribute \"type\" must be a string, got %s", typeNode.Kind())
	}
	spec := types.AttributeSpec{Type: typ}
	if opts, ok := n.Get("options"); ok {
		if opts.Kind() != types.KindSequence {
			return types.AttributeSpec{}, types.ConfigErrorf("attribute \"options\" must be a list, got %s", opts.Kind())
		}
		spec.Options = opts.Items()
	}
	return spec, nil
}
