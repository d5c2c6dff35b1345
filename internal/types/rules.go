// internal/types/rules.go
package types

/*
 * Raw schema types.
 *
 * A rule as written in the schema file takes one of three shapes. The shape
 * is decided once, at load time, and carried as RawRuleKind so the expander
 * never re-inspects dynamic types:
 *
 *   "string"                     -> RawBareType
 *   ["left", "center"] or {}     -> RawLiteralList
 *   {type: string, required: no} -> RawCanonical
 *
 * Anything else is RawInvalid and fails at expansion time with ErrConfig.
 *
 * RuleSet keeps declaration order: the required pass of the validator walks
 * it in that order, which fixes which missing field is reported first.
 */

// RawRuleKind tags the shape of a rule as written in the schema.
type RawRuleKind int

const (
	RawInvalid RawRuleKind = iota
	RawBareType
	RawLiteralList
	RawCanonical
)

func (k RawRuleKind) String() string {
	switch k {
	case RawBareType:
		return "bare type"
	case RawLiteralList:
		return "literal list"
	case RawCanonical:
		return "canonical"
	default:
		return "invalid"
	}
}

// RawRule is a rule in its declared shape.
type RawRule struct {
	Kind     RawRuleKind
	TypeName string // RawBareType
	Literals []Node // RawLiteralList
	Attrs    Node   // RawCanonical: the non-empty mapping
	Source   Node   // node the rule was classified from
}

// ClassifyRule decides the shape of a schema node.
// Empty collections are literal lists with no members.
func ClassifyRule(n Node) RawRule {
	switch n.Kind() {
	case KindString:
		s, _ := n.Str()
		return RawRule{Kind: RawBareType, TypeName: s, Source: n}
	case KindSequence:
		return RawRule{Kind: RawLiteralList, Literals: n.Items(), Source: n}
	case KindMapping:
		if n.Len() == 0 {
			return RawRule{Kind: RawLiteralList, Literals: []Node{}, Source: n}
		}
		return RawRule{Kind: RawCanonical, Attrs: n, Source: n}
	default:
		return RawRule{Kind: RawInvalid, Source: n}
	}
}

// RuleEntry binds a rule-set key to its raw rule.
type RuleEntry struct {
	Key  string
	Rule RawRule
}

// RuleSet is an ordered mapping from field key (or WildcardKey) to raw rule.
type RuleSet struct {
	entries []RuleEntry
	index   map[string]int
}

// NewRuleSet builds a rule set. A repeated key replaces the earlier rule in place.
func NewRuleSet(entries ...RuleEntry) RuleSet {
	rs := RuleSet{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if i, ok := rs.index[e.Key]; ok {
			rs.entries[i].Rule = e.Rule
			continue
		}
		rs.index[e.Key] = len(rs.entries)
		rs.entries = append(rs.entries, e)
	}
	return rs
}

// RuleSetFromNode classifies every entry of a schema mapping.
// An empty sequence is accepted as an empty rule set.
func RuleSetFromNode(n Node) (RuleSet, error) {
	switch n.Kind() {
	case KindMapping:
		entries := make([]RuleEntry, 0, n.Len())
		for _, f := range n.Fields() {
			entries = append(entries, RuleEntry{Key: f.Key, Rule: ClassifyRule(f.Value)})
		}
		return NewRuleSet(entries...), nil
	case KindSequence:
		if n.Len() == 0 {
			return NewRuleSet(), nil
		}
	}
	return RuleSet{}, ConfigErrorf("rule set must be a mapping, got %s", n.Kind())
}

// Lookup returns the rule declared for key.
func (rs RuleSet) Lookup(key string) (RawRule, bool) {
	i, ok := rs.index[key]
	if !ok {
		return RawRule{}, false
	}
	return rs.entries[i].Rule, true
}

// Entries returns the rules in declaration order.
func (rs RuleSet) Entries() []RuleEntry {
	return rs.entries
}

func (rs RuleSet) Len() int {
	return len(rs.entries)
}

// HasWildcard reports whether positional elements have a rule.
func (rs RuleSet) HasWildcard() bool {
	_, ok := rs.index[WildcardKey]
	return ok
}

// AttributeSpec declares the value type of a custom tag attribute.
// Options carries Enum members or the Number sign flags.
type AttributeSpec struct {
	Type    string
	Options []Node
}

// AttributeDef names one attribute of a custom tag.
type AttributeDef struct {
	Name string
	Spec AttributeSpec
}

// CustomTagDefinition extends the markup grammar with one element.
type CustomTagDefinition struct {
	Tag                 string
	ContentSet          string
	ContentModel        string
	AttributeCollection string
	Attributes          []AttributeDef
}

// SchemaConfig is the interpreted schema file.
type SchemaConfig struct {
	Tools      map[string]RuleSet
	CustomTags []CustomTagDefinition
}
