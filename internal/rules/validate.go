// internal/rules/validate.go
package rules

import (
	"fmt"

	"github.com/solatis/blockkeeper/internal/types"
)

/*
 * Structural validation.
 *
 * Each rule-set level runs three passes and stops at the first violation:
 *   1. required: declared non-wildcard keys in declaration order
 *   2. extra:    named payload keys without a rule, in payload order
 *   3. values:   every entry in payload order, positional keys via "-"
 *
 * canBeOnly is terminal: a member value is accepted without a type check.
 * A null value is accepted only for rules that are both optional and
 * allow_null.
 *
 * A non-empty sequence in an array field whose rule set names fields but
 * declares no wildcard is a list of records: each element is checked against
 * the whole rule set. Block data and empty sequences always run the passes.
 *
 * Paths are copied on descent so a returned FieldError never aliases a
 * slice that a sibling walk later appends to.
 */

// Validate checks data against rs.
func Validate(rs types.RuleSet, data types.Node) error {
	return validateLevel(rs, data, nil)
}

func validateLevel(rs types.RuleSet, data types.Node, path []types.Key) error {
	if !data.IsCollection() {
		return &types.FieldError{Err: types.ErrInvalidType, Path: path, Value: data, Expected: TypeArray}
	}

	// required pass
	for _, e := range rs.Entries() {
		if e.Key == types.WildcardKey {
			continue
		}
		key := types.NamedKey(e.Key)
		rule, err := Expand(e.Rule)
		if err != nil {
			return ruleError(path, key, err)
		}
		if rule.Required && !data.Has(key) {
			return &types.FieldError{Err: types.ErrMissingRequiredField, Path: childPath(path, key)}
		}
	}

	entries := data.Entries()

	// extra pass
	for _, entry := range entries {
		if entry.Key.Positional {
			continue
		}
		if _, ok := lookup(rs, entry.Key); !ok {
			return &types.FieldError{Err: types.ErrUnknownField, Path: childPath(path, entry.Key)}
		}
	}

	// per-value pass
	for _, entry := range entries {
		p := childPath(path, entry.Key)
		raw, ok := lookup(rs, entry.Key)
		if !ok {
			return &types.FieldError{Err: types.ErrUnknownField, Path: p}
		}
		rule, err := Expand(raw)
		if err != nil {
			return ruleError(path, entry.Key, err)
		}
		if err := checkValue(rule, entry.Value, p); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(rule FieldRule, v types.Node, path []types.Key) error {
	if rule.Enumerated {
		if !rule.Allows(v) {
			return &types.FieldError{Err: types.ErrInvalidEnumValue, Path: path, Value: v}
		}
		return nil
	}

	if !rule.Required && rule.AllowNull && v.IsNull() {
		return nil
	}

	var want types.Kind
	switch rule.Type {
	case TypeString:
		want = types.KindString
	case TypeInteger:
		want = types.KindInteger
	case TypeBoolean:
		want = types.KindBoolean
	case TypeArray:
		if !v.IsCollection() {
			return &types.FieldError{Err: types.ErrInvalidType, Path: path, Value: v, Expected: rule.Type}
		}
		if isRecordList(rule.Data, v) {
			for i, item := range v.Items() {
				if err := validateLevel(rule.Data, item, childPath(path, types.PositionalKey(i))); err != nil {
					return err
				}
			}
			return nil
		}
		return validateLevel(rule.Data, v, path)
	default:
		return &types.FieldError{Err: types.ErrUnhandledType, Path: path, Value: v, Expected: rule.Type}
	}

	if v.Kind() != want {
		return &types.FieldError{Err: types.ErrInvalidType, Path: path, Value: v, Expected: rule.Type}
	}
	return nil
}

// lookup resolves a payload key to its rule. Named keys never resolve
// through the wildcard, even when the name is "-".
func lookup(rs types.RuleSet, key types.Key) (types.RawRule, bool) {
	if !key.Positional && key.Name == types.WildcardKey {
		return types.RawRule{}, false
	}
	return rs.Lookup(key.RuleKey())
}

// isRecordList reports whether an array field's value is a non-empty list of
// records: a sequence whose rule set names fields but declares no wildcard.
// Block data itself is never a record list.
func isRecordList(rs types.RuleSet, data types.Node) bool {
	return data.Kind() == types.KindSequence && data.Len() > 0 && rs.Len() > 0 && !rs.HasWildcard()
}

func childPath(path []types.Key, key types.Key) []types.Key {
	out := make([]types.Key, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}

func ruleError(path []types.Key, key types.Key, err error) error {
	return fmt.Errorf("rule for %q: %w", types.FormatPath(childPath(path, key)), err)
}
