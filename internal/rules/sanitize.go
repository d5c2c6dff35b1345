// internal/rules/sanitize.go
package rules

import (
	"github.com/solatis/blockkeeper/internal/markup"
	"github.com/solatis/blockkeeper/internal/types"
)

// Markup cleans one string so only allowedTags remain.
// *markup.Grammar is the production implementation.
type Markup interface {
	Sanitize(input, allowedTags string) (string, error)
}

// Sanitize returns a copy of data with every string field passed through m
// using the field's allowedTags. Array fields recurse; other values pass
// through unchanged. Key set and order are preserved.
//
// data must already have passed Validate with the same rule set. Entries
// that resolve to no rule are dropped rather than reported.
func Sanitize(rs types.RuleSet, data types.Node, m Markup) (types.Node, error) {
	if !data.IsCollection() {
		return data, nil
	}

	entries := data.Entries()
	out := make([]types.Entry, 0, len(entries))
	for _, entry := range entries {
		raw, ok := lookup(rs, entry.Key)
		if !ok {
			continue
		}
		rule, err := Expand(raw)
		if err != nil {
			return types.Node{}, err
		}

		v := entry.Value
		switch rule.Type {
		case TypeString:
			if s, ok := v.Str(); ok && rule.AllowedTags != markup.AllowAll {
				clean, err := m.Sanitize(s, rule.AllowedTags)
				if err != nil {
					return types.Node{}, err
				}
				v = types.StringNode(clean)
			}
		case TypeArray:
			if v.IsCollection() {
				clean, err := sanitizeArray(rule.Data, v, m)
				if err != nil {
					return types.Node{}, err
				}
				v = clean
			}
		}
		out = append(out, types.Entry{Key: entry.Key, Value: v})
	}
	return data.WithEntries(out), nil
}

func sanitizeArray(rs types.RuleSet, data types.Node, m Markup) (types.Node, error) {
	if !isRecordList(rs, data) {
		return Sanitize(rs, data, m)
	}
	items := make([]types.Node, 0, data.Len())
	for _, item := range data.Items() {
		clean, err := Sanitize(rs, item, m)
		if err != nil {
			return types.Node{}, err
		}
		items = append(items, clean)
	}
	return types.SeqNode(items...), nil
}
