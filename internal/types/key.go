package types

import (
	"strconv"
	"strings"
)

// WildcardKey is the reserved rule key describing elements of a positional
// collection. Positional payload keys always resolve through it.
const WildcardKey = "-"

// Key identifies one entry of a payload collection.
// Mapping entries are always Named, even when the name looks numeric;
// sequence elements are always Positional.
type Key struct {
	Name       string // mapping key (valid when !Positional)
	Index      int    // sequence index (valid when Positional)
	Positional bool   // disambiguates Index=0 from a named key
}

// NamedKey returns the key of a mapping entry.
func NamedKey(name string) Key {
	return Key{Name: name}
}

// PositionalKey returns the key of a sequence element.
func PositionalKey(index int) Key {
	return Key{Index: index, Positional: true}
}

// RuleKey returns the rule-set key this payload key resolves through.
func (k Key) RuleKey() string {
	if k.Positional {
		return WildcardKey
	}
	return k.Name
}

func (k Key) String() string {
	if k.Positional {
		return strconv.Itoa(k.Index)
	}
	return k.Name
}

// FormatPath renders a key path as items[2].title.
func FormatPath(path []Key) string {
	var sb strings.Builder
	for i, k := range path {
		if k.Positional {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(k.Index))
			sb.WriteByte(']')
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(k.Name)
	}
	return sb.String()
}
