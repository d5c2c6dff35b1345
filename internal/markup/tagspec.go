package markup

import (
	"sort"
	"strings"

	"github.com/solatis/blockkeeper/internal/types"
)

// AllowAll is the allowedTags value that leaves strings untouched.
const AllowAll = "*"

// ElementSpec is one element of an allowed-tags list with its attributes.
type ElementSpec struct {
	Name  string
	Attrs []string
}

// TagSpec is a parsed allowed-tags list such as "a[href|title],b,*[class]".
// Global holds the attributes listed under "*".
type TagSpec struct {
	Elements []ElementSpec
	Global   []string
}

// ParseTagSpec parses a comma separated allowed-tags list. Element and
// attribute names are lower-cased; repeated elements are merged. The empty
// string yields an empty spec, which strips every tag.
func ParseTagSpec(s string) (TagSpec, error) {
	elements := map[string]map[string]bool{}
	global := map[string]bool{}

	for _, part := range splitTopLevel(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := part
		var attrList string
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return TagSpec{}, types.ConfigErrorf("allowed tags %q: unclosed attribute list in %q", s, part)
			}
			name = part[:open]
			attrList = part[open+1 : len(part)-1]
			if strings.ContainsAny(attrList, "[]") {
				return TagSpec{}, types.ConfigErrorf("allowed tags %q: nested brackets in %q", s, part)
			}
		} else if strings.ContainsRune(part, ']') {
			return TagSpec{}, types.ConfigErrorf("allowed tags %q: stray ']' in %q", s, part)
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return TagSpec{}, types.ConfigErrorf("allowed tags %q: missing element name in %q", s, part)
		}

		attrs := global
		if name != "*" {
			if !validName.MatchString(name) {
				return TagSpec{}, types.ConfigErrorf("allowed tags %q: invalid element name %q", s, name)
			}
			if elements[name] == nil {
				elements[name] = map[string]bool{}
			}
			attrs = elements[name]
		}

		for _, a := range strings.Split(attrList, "|") {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" {
				attrs[a] = true
			}
		}
	}

	spec := TagSpec{Global: sortedKeys(global)}
	for _, name := range sortedKeys(elementsAsSet(elements)) {
		spec.Elements = append(spec.Elements, ElementSpec{Name: name, Attrs: sortedKeys(elements[name])})
	}
	return spec, nil
}

// splitTopLevel splits on commas outside attribute brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// String renders the normalized form; equal specs render identically.
func (t TagSpec) String() string {
	var parts []string
	for _, el := range t.Elements {
		parts = append(parts, renderElement(el.Name, el.Attrs))
	}
	if len(t.Global) > 0 {
		parts = append(parts, renderElement("*", t.Global))
	}
	return strings.Join(parts, ",")
}

func renderElement(name string, attrs []string) string {
	if len(attrs) == 0 {
		return name
	}
	return name + "[" + strings.Join(attrs, "|") + "]"
}

func elementsAsSet(m map[string]map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
