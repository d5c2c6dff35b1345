// Package markup sanitizes HTML fragments against allowed-tags lists.
//
// A Grammar is built once from the built-in element set plus custom tag
// definitions and is immutable afterwards. Each distinct allowed-tags list
// is compiled into a bluemonday policy on first use and cached; later calls
// with the same (normalized) list reuse the cached Binding.
package markup

import (
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/solatis/blockkeeper/internal/types"
)

// Element is one element the grammar knows about.
type Element struct {
	Name         string
	ContentSet   string
	ContentModel string
	Attrs        map[string]attrMatcher
	Custom       bool
}

// urlSchemes are the only absolute URL schemes that survive sanitization.
var urlSchemes = []string{"http", "https", "mailto", "tel"}

// safeStyles are the CSS properties kept when "style" is allowed.
var safeStyles = []string{
	"color", "background-color", "text-align", "font-weight", "font-style", "text-decoration",
}

var contentSets = map[string]bool{
	"": true, "Inline": true, "Block": true, "Flow": true, "List": true,
	"Table": true, "Form": true, "Formctrl": true, "Heading": true,
}

var contentModels = map[string]bool{
	"": true, "Empty": true, "Inline": true, "Flow": true, "Block": true,
}

var contentModelPrefixes = []string{"Optional:", "Required:", "Chameleon:", "Custom:"}

// builtinElements are the standard elements an allowed-tags list may name.
// Scripting, framing and document-level elements are absent on purpose and
// are silently dropped from lists.
var builtinElements = []string{
	"a", "abbr", "acronym", "address", "b", "bdo", "big", "blockquote", "br",
	"caption", "cite", "code", "col", "colgroup", "dd", "del", "dfn", "div",
	"dl", "dt", "em", "h1", "h2", "h3", "h4", "h5", "h6", "hr", "i", "img",
	"ins", "kbd", "li", "ol", "p", "pre", "q", "s", "samp", "small", "span",
	"strike", "strong", "sub", "sup", "table", "tbody", "td", "tfoot", "th",
	"thead", "tr", "tt", "u", "ul", "var",
}

// forbiddenElements may not be redefined by custom tags.
var forbiddenElements = map[string]bool{
	"script": true, "style": true, "iframe": true, "frame": true, "frameset": true,
	"object": true, "embed": true, "applet": true, "base": true, "link": true,
	"meta": true, "form": true, "input": true, "textarea": true, "svg": true, "math": true,
}

// Grammar is the immutable element set plus a cache of compiled policies.
type Grammar struct {
	elements map[string]*Element
	bindings sync.Map // normalized TagSpec string -> *Binding
}

// NewGrammar builds the grammar from the built-in elements, the built-in
// inline "mark" element and the given custom tag definitions.
func NewGrammar(defs []types.CustomTagDefinition) (*Grammar, error) {
	g := &Grammar{elements: make(map[string]*Element, len(builtinElements)+len(defs)+1)}
	for _, name := range builtinElements {
		g.elements[name] = &Element{Name: name, Attrs: standardAttrs}
	}

	mark := types.CustomTagDefinition{
		Tag:                 "mark",
		ContentSet:          "Inline",
		ContentModel:        "Inline",
		AttributeCollection: "Common",
	}
	for _, def := range append([]types.CustomTagDefinition{mark}, defs...) {
		el, err := compileElement(def)
		if err != nil {
			return nil, err
		}
		g.elements[el.Name] = el
	}
	return g, nil
}

func compileElement(def types.CustomTagDefinition) (*Element, error) {
	name := def.Tag
	if !validName.MatchString(name) {
		return nil, types.ConfigErrorf("custom tag %q: invalid element name", name)
	}
	if forbiddenElements[name] {
		return nil, types.ConfigErrorf("custom tag %q: element may not be allowed", name)
	}
	if !contentSets[def.ContentSet] {
		return nil, types.ConfigErrorf("custom tag %q: unknown content set %q", name, def.ContentSet)
	}
	if !validContentModel(def.ContentModel) {
		return nil, types.ConfigErrorf("custom tag %q: unknown content model %q", name, def.ContentModel)
	}
	collection, ok := attributeCollections[def.AttributeCollection]
	if !ok {
		return nil, types.ConfigErrorf("custom tag %q: unknown attribute collection %q", name, def.AttributeCollection)
	}

	el := &Element{
		Name:         name,
		ContentSet:   def.ContentSet,
		ContentModel: def.ContentModel,
		Attrs:        make(map[string]attrMatcher, len(collection)+len(def.Attributes)),
		Custom:       true,
	}
	for _, a := range collection {
		el.Attrs[a] = standardAttrs[a]
	}
	for _, a := range def.Attributes {
		attr := strings.ToLower(a.Name)
		if !validName.MatchString(attr) || strings.HasPrefix(attr, "on") {
			return nil, types.ConfigErrorf("custom tag %q: invalid attribute name %q", name, a.Name)
		}
		m, err := compileAttribute(name, attr, a.Spec)
		if err != nil {
			return nil, err
		}
		el.Attrs[attr] = m
	}
	return el, nil
}

func validContentModel(model string) bool {
	if contentModels[model] {
		return true
	}
	for _, p := range contentModelPrefixes {
		if rest, ok := strings.CutPrefix(model, p); ok && rest != "" {
			return true
		}
	}
	return false
}

// Elements returns the names of every element the grammar accepts, sorted.
func (g *Grammar) Elements() []string {
	names := make([]string, 0, len(g.elements))
	for name := range g.elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sanitize cleans input so that only the elements and attributes named by
// allowedTags remain. AllowAll returns input unchanged.
func (g *Grammar) Sanitize(input, allowedTags string) (string, error) {
	if allowedTags == AllowAll {
		return input, nil
	}
	b, err := g.BindString(allowedTags)
	if err != nil {
		return "", err
	}
	return b.Sanitize(input), nil
}

// BindString parses allowedTags and returns its cached binding.
func (g *Grammar) BindString(allowedTags string) (*Binding, error) {
	if b, ok := g.bindings.Load(allowedTags); ok {
		return b.(*Binding), nil
	}
	spec, err := ParseTagSpec(allowedTags)
	if err != nil {
		return nil, err
	}
	b := g.Bind(spec)
	g.bindings.LoadOrStore(allowedTags, b)
	return b, nil
}

// Bind returns the binding for spec, compiling it on first use.
func (g *Grammar) Bind(spec TagSpec) *Binding {
	key := spec.String()
	if b, ok := g.bindings.Load(key); ok {
		return b.(*Binding)
	}
	b, _ := g.bindings.LoadOrStore(key, g.compile(spec))
	return b.(*Binding)
}

// Binding is a compiled allowed-tags list. Safe for concurrent use.
type Binding struct {
	spec   string
	policy *bluemonday.Policy
	keep   map[string]bool
}

// Spec returns the normalized allowed-tags list the binding was built from.
func (b *Binding) Spec() string {
	return b.spec
}

// Sanitize applies the policy, then removes empty elements.
func (b *Binding) Sanitize(input string) string {
	return removeEmpty(b.policy.Sanitize(input), b.keep)
}

func (g *Grammar) compile(spec TagSpec) *Binding {
	p := bluemonday.NewPolicy()
	p.AllowURLSchemes(urlSchemes...)
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnFullyQualifiedLinks(true)

	keep := map[string]bool{}
	for _, es := range spec.Elements {
		el, ok := g.elements[es.Name]
		if !ok {
			continue
		}
		p.AllowElements(el.Name)
		p.AllowNoAttrs().OnElements(el.Name)
		if el.ContentModel == "Empty" {
			keep[el.Name] = true
		}
		if el.Name == "a" {
			// attributes the link policy adds must survive a second pass
			allowAttr(p, "rel", standardAttrs["rel"]).OnElements("a")
			allowAttr(p, "target", standardAttrs["target"]).OnElements("a")
		}
		for _, attr := range es.Attrs {
			if attr == "style" {
				p.AllowStyles(safeStyles...).OnElements(el.Name)
				continue
			}
			m, ok := el.Attrs[attr]
			if !ok {
				continue
			}
			allowAttr(p, attr, m).OnElements(el.Name)
		}
	}

	for _, attr := range spec.Global {
		if attr == "style" {
			p.AllowStyles(safeStyles...).Globally()
			continue
		}
		m, ok := standardAttrs[attr]
		if !ok {
			continue
		}
		allowAttr(p, attr, m).Globally()
	}

	return &Binding{spec: spec.String(), policy: p, keep: keep}
}

type attrTarget interface {
	OnElements(elements ...string) *bluemonday.Policy
	Globally() *bluemonday.Policy
}

func allowAttr(p *bluemonday.Policy, attr string, m attrMatcher) attrTarget {
	if m.pattern != nil {
		return p.AllowAttrs(attr).Matching(m.pattern)
	}
	return p.AllowAttrs(attr)
}
