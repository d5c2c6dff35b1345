// internal/types/node.go
package types

import "math"

/*
 * Payload tree for block data.
 *
 * Node is a tagged variant over the JSON value space. The validator and
 * sanitizer switch on Kind instead of inspecting dynamic Go types, and
 * mappings keep insertion order so that key iteration (and therefore the
 * first reported violation) is reproducible across runs.
 *
 * Integer and Number are distinct kinds: 3 is an Integer, 3.0 and 3.5 are
 * Numbers. Integer rules accept only the former.
 *
 * Nodes are values. Constructors copy nothing; callers must not mutate
 * slices passed to SeqNode/MapNode after construction.
 */

// Kind tags the variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Field is one entry of a mapping node.
type Field struct {
	Key   string
	Value Node
}

// Entry is one entry of a collection node, keyed by name or position.
type Entry struct {
	Key   Key
	Value Node
}

// Node is a payload value. The zero Node is null.
type Node struct {
	kind   Kind
	str    string
	num    float64
	i      int64
	b      bool
	items  []Node
	fields []Field
}

// NullNode returns the null sentinel.
func NullNode() Node { return Node{} }

// StringNode wraps a string.
func StringNode(s string) Node { return Node{kind: KindString, str: s} }

// IntNode wraps an integral number.
func IntNode(i int64) Node { return Node{kind: KindInteger, i: i} }

// NumberNode wraps a non-integral (or float-typed) number.
func NumberNode(f float64) Node { return Node{kind: KindNumber, num: f} }

// BoolNode wraps a boolean.
func BoolNode(b bool) Node { return Node{kind: KindBoolean, b: b} }

// SeqNode builds a positional collection.
func SeqNode(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}
	return Node{kind: KindSequence, items: items}
}

// MapNode builds an ordered mapping. Duplicate keys keep the first position
// and the last value.
func MapNode(fields ...Field) Node {
	b := newFieldBuilder(len(fields))
	for _, f := range fields {
		b.set(f.Key, f.Value)
	}
	return b.node()
}

// Pair is shorthand for a mapping Field.
func Pair(key string, value Node) Field {
	return Field{Key: key, Value: value}
}

// fieldBuilder collects mapping fields in first-seen order; a repeated key
// overwrites the value in place.
type fieldBuilder struct {
	fields []Field
	pos    map[string]int
}

func newFieldBuilder(capacity int) *fieldBuilder {
	return &fieldBuilder{
		fields: make([]Field, 0, capacity),
		pos:    make(map[string]int, capacity),
	}
}

func (b *fieldBuilder) set(key string, value Node) {
	if i, ok := b.pos[key]; ok {
		b.fields[i].Value = value
		return
	}
	b.pos[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: key, Value: value})
}

func (b *fieldBuilder) node() Node {
	return Node{kind: KindMapping, fields: b.fields}
}

func (n Node) Kind() Kind { return n.kind }

func (n Node) IsNull() bool { return n.kind == KindNull }

// IsCollection reports whether n is a sequence or a mapping.
func (n Node) IsCollection() bool {
	return n.kind == KindSequence || n.kind == KindMapping
}

// Str returns the string value and whether n is a string.
func (n Node) Str() (string, bool) {
	return n.str, n.kind == KindString
}

// Int returns the integer value and whether n is an Integer.
func (n Node) Int() (int64, bool) {
	return n.i, n.kind == KindInteger
}

// Float returns the numeric value of an Integer or Number.
func (n Node) Float() (float64, bool) {
	switch n.kind {
	case KindInteger:
		return float64(n.i), true
	case KindNumber:
		return n.num, true
	default:
		return 0, false
	}
}

// Bool returns the boolean value and whether n is a boolean.
func (n Node) Bool() (bool, bool) {
	return n.b, n.kind == KindBoolean
}

// Items returns the elements of a sequence (nil otherwise).
func (n Node) Items() []Node {
	if n.kind != KindSequence {
		return nil
	}
	return n.items
}

// Fields returns the entries of a mapping in insertion order (nil otherwise).
func (n Node) Fields() []Field {
	if n.kind != KindMapping {
		return nil
	}
	return n.fields
}

// Len returns the number of entries of a collection, 0 for scalars.
func (n Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.fields)
	default:
		return 0
	}
}

// Get looks up a named entry of a mapping.
func (n Node) Get(name string) (Node, bool) {
	if n.kind != KindMapping {
		return Node{}, false
	}
	for _, f := range n.fields {
		if f.Key == name {
			return f.Value, true
		}
	}
	return Node{}, false
}

// Has reports whether the collection holds an entry for key.
// Named keys never match sequence elements and vice versa.
func (n Node) Has(key Key) bool {
	if key.Positional {
		return n.kind == KindSequence && key.Index >= 0 && key.Index < len(n.items)
	}
	_, ok := n.Get(key.Name)
	return ok
}

// Entries returns the collection entries in order with typed keys.
func (n Node) Entries() []Entry {
	switch n.kind {
	case KindSequence:
		out := make([]Entry, len(n.items))
		for i, item := range n.items {
			out[i] = Entry{Key: PositionalKey(i), Value: item}
		}
		return out
	case KindMapping:
		out := make([]Entry, len(n.fields))
		for i, f := range n.fields {
			out[i] = Entry{Key: NamedKey(f.Key), Value: f.Value}
		}
		return out
	default:
		return nil
	}
}

// WithEntries builds a collection of the same kind as n from entries.
// Positional entries are appended in order; named entries keep their names.
func (n Node) WithEntries(entries []Entry) Node {
	if n.kind == KindSequence {
		items := make([]Node, 0, len(entries))
		for _, e := range entries {
			items = append(items, e.Value)
		}
		return SeqNode(items...)
	}
	fields := make([]Field, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, Field{Key: e.Key.Name, Value: e.Value})
	}
	return Node{kind: KindMapping, fields: fields}
}

// Equal reports deep equality. Integer and Number compare numerically;
// every other kind must match exactly. Mapping comparison is order sensitive.
func (n Node) Equal(o Node) bool {
	if nf, ok := n.Float(); ok {
		of, ok := o.Float()
		return ok && nf == of && !math.IsNaN(nf)
	}
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindNull:
		return true
	case KindString:
		return n.str == o.str
	case KindBoolean:
		return n.b == o.b
	case KindSequence:
		if len(n.items) != len(o.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(n.fields) != len(o.fields) {
			return false
		}
		for i := range n.fields {
			if n.fields[i].Key != o.fields[i].Key || !n.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders n as compact JSON for diagnostics.
func (n Node) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "<" + n.kind.String() + ">"
	}
	return string(b)
}
