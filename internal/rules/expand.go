// internal/rules/expand.go
package rules

import (
	"github.com/solatis/blockkeeper/internal/types"
)

/*
 * Rule expansion.
 *
 * Normalizes the three declared rule shapes into one FieldRule:
 *
 *   BareType     "string"          -> {type: string, required: true}
 *   LiteralList  ["a", "b"]        -> {type: string, canBeOnly: [a, b]}
 *   Canonical    {type: ..., ...}  -> attributes read from the mapping
 *
 * Expansion is pure and runs on every lookup; rule sets are small and the
 * cost is a handful of map reads. Unknown canonical attributes are ignored
 * so schemas written for newer editors keep loading.
 *
 * A canonical rule without "type" expands successfully with an empty Type.
 * The validator reports it as an unhandled type unless canBeOnly makes the
 * type irrelevant.
 */

// Rule type names understood by the validator.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// FieldRule is the canonical form of a rule.
type FieldRule struct {
	Type        string
	Required    bool
	AllowNull   bool
	AllowedTags string // "" strips all markup, markup.AllowAll keeps it
	CanBeOnly   []types.Node
	Enumerated  bool // CanBeOnly was declared (possibly empty)
	Data        types.RuleSet
}

// Expand normalizes a raw rule.
func Expand(raw types.RawRule) (FieldRule, error) {
	switch raw.Kind {
	case types.RawBareType:
		return FieldRule{Type: raw.TypeName, Required: true}, nil
	case types.RawLiteralList:
		return FieldRule{
			Type:       TypeString,
			Required:   true,
			CanBeOnly:  raw.Literals,
			Enumerated: true,
		}, nil
	case types.RawCanonical:
		return expandCanonical(raw.Attrs)
	default:
		return FieldRule{}, types.ConfigErrorf("cannot determine element type of rule %s", raw.Source)
	}
}

func expandCanonical(attrs types.Node) (FieldRule, error) {
	rule := FieldRule{Required: true}

	for _, f := range attrs.Fields() {
		v := f.Value
		switch f.Key {
		case "type":
			s, ok := v.Str()
			if !ok {
				return FieldRule{}, types.ConfigErrorf("rule attribute \"type\" must be a string, got %s", v.Kind())
			}
			rule.Type = s
		case "required":
			b, ok := v.Bool()
			if !ok {
				return FieldRule{}, types.ConfigErrorf("rule attribute \"required\" must be a boolean, got %s", v.Kind())
			}
			rule.Required = b
		case "allow_null":
			b, ok := v.Bool()
			if !ok {
				return FieldRule{}, types.ConfigErrorf("rule attribute \"allow_null\" must be a boolean, got %s", v.Kind())
			}
			rule.AllowNull = b
		case "allowedTags":
			s, ok := v.Str()
			if !ok {
				return FieldRule{}, types.ConfigErrorf("rule attribute \"allowedTags\" must be a string, got %s", v.Kind())
			}
			rule.AllowedTags = s
		case "canBeOnly":
			switch {
			case v.Kind() == types.KindSequence:
				rule.CanBeOnly = v.Items()
			case v.Kind() == types.KindMapping && v.Len() == 0:
				rule.CanBeOnly = []types.Node{}
			default:
				return FieldRule{}, types.ConfigErrorf("rule attribute \"canBeOnly\" must be a list, got %s", v.Kind())
			}
			rule.Enumerated = true
		case "data":
			rs, err := types.RuleSetFromNode(v)
			if err != nil {
				return FieldRule{}, types.ConfigErrorf("rule attribute \"data\" must be a mapping, got %s", v.Kind())
			}
			rule.Data = rs
		}
	}
	return rule, nil
}

// Allows reports whether v is a member of the canBeOnly set.
func (r FieldRule) Allows(v types.Node) bool {
	for _, member := range r.CanBeOnly {
		if member.Equal(v) {
			return true
		}
	}
	return false
}
