package markup

import (
	"regexp"
	"strings"

	"github.com/solatis/blockkeeper/internal/types"
)

/*
 * Attribute value types.
 *
 * Each declared attribute type compiles to a bluemonday matcher. A nil
 * matcher means any value is accepted (Text, CDATA). URL-bearing attributes
 * of standard elements (href, src, cite) carry no matcher: bluemonday's own
 * scheme policy applies to them.
 */

var (
	validName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	pixelsPattern   = regexp.MustCompile(`^\d+(?:px)?$`)
	lengthPattern   = regexp.MustCompile(`^\d+(?:\.\d+)?%?$`)
	idPattern       = regexp.MustCompile(`^[A-Za-z][\w\-:.]*$`)
	classPattern    = regexp.MustCompile(`^[\w\-]+(?: [\w\-]+)*$`)
	colorPattern    = regexp.MustCompile(`^(?:#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]+)$`)
	uriPattern      = regexp.MustCompile(`^(?:(?i:https?|mailto|tel):|[^:/?#]*(?:[/?#]|$))`)
	linkTypePattern = regexp.MustCompile(`^(?i)[a-z]+(?: [a-z]+)*$`)
	targetPattern   = regexp.MustCompile(`^_(?:blank|self|parent|top)$`)
	langPattern     = regexp.MustCompile(`^[a-zA-Z]{1,8}(?:-[a-zA-Z0-9]{1,8})*$`)
	nmtokensPattern = regexp.MustCompile(`^[\w\-.:]+(?: [\w\-.:]+)*$`)
	dirPattern      = regexp.MustCompile(`^(?i:ltr|rtl)$`)
	alignPattern    = regexp.MustCompile(`^(?i:left|center|right|justify)$`)
)

// attrMatcher is the compiled value constraint of one attribute.
type attrMatcher struct {
	pattern *regexp.Regexp // nil: any value
	url     bool           // validated by the URL scheme policy
}

// standardAttrs types the attributes accepted on built-in elements.
// Names not listed here are dropped from allowed-tags lists.
var standardAttrs = map[string]attrMatcher{
	"class":   {pattern: classPattern},
	"id":      {pattern: idPattern},
	"title":   {},
	"lang":    {pattern: langPattern},
	"dir":     {pattern: dirPattern},
	"href":    {url: true},
	"src":     {url: true},
	"cite":    {url: true},
	"alt":     {},
	"width":   {pattern: lengthPattern},
	"height":  {pattern: lengthPattern},
	"colspan": {pattern: numberPattern(false, false, true)},
	"rowspan": {pattern: numberPattern(false, false, true)},
	"start":   {pattern: numberPattern(true, true, true)},
	"target":  {pattern: targetPattern},
	"rel":     {pattern: linkTypePattern},
	"name":    {pattern: nmtokensPattern},
	"align":   {pattern: alignPattern},
}

// attributeCollections maps a collection name to the attributes it adds.
var attributeCollections = map[string][]string{
	"":       nil,
	"Core":   {"class", "id", "title"},
	"Lang":   {"lang"},
	"I18N":   {"lang"},
	"Common": {"class", "id", "title", "lang"},
}

// compileAttribute builds the matcher for a declared custom attribute.
func compileAttribute(tag, name string, spec types.AttributeSpec) (attrMatcher, error) {
	typ := spec.Type
	options := spec.Options

	// Enum#a,b and Enum#s:a,b inline forms
	if rest, ok := strings.CutPrefix(typ, "Enum#"); ok {
		typ = "Enum"
		caseSensitive := false
		if r, ok := strings.CutPrefix(rest, "s:"); ok {
			caseSensitive, rest = true, r
		}
		var values []string
		for _, v := range strings.Split(rest, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: empty enum", tag, name)
		}
		return attrMatcher{pattern: enumPattern(values, caseSensitive)}, nil
	}

	switch typ {
	case "Text", "CDATA":
		return attrMatcher{}, nil
	case "URI":
		return attrMatcher{pattern: uriPattern}, nil
	case "Enum":
		var values []string
		for _, o := range options {
			s, ok := o.Str()
			if !ok {
				return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: enum option %s is not a string", tag, name, o)
			}
			values = append(values, s)
		}
		if len(values) == 0 {
			return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: enum requires options", tag, name)
		}
		return attrMatcher{pattern: enumPattern(values, false)}, nil
	case "Number":
		if len(options) == 0 {
			return attrMatcher{pattern: numberPattern(false, true, true)}, nil
		}
		if len(options) != 3 {
			return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: number options must be [allowNegative, allowZero, allowPositive]", tag, name)
		}
		var flags [3]bool
		for i, o := range options {
			b, ok := o.Bool()
			if !ok {
				return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: number option %s is not a boolean", tag, name, o)
			}
			flags[i] = b
		}
		p := numberPattern(flags[0], flags[1], flags[2])
		if p == nil {
			return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: number options exclude every value", tag, name)
		}
		return attrMatcher{pattern: p}, nil
	case "Bool":
		return attrMatcher{pattern: regexp.MustCompile(`^(?i:` + regexp.QuoteMeta(name) + `)?$`)}, nil
	case "Pixels":
		return attrMatcher{pattern: pixelsPattern}, nil
	case "Length":
		return attrMatcher{pattern: lengthPattern}, nil
	case "ID":
		return attrMatcher{pattern: idPattern}, nil
	case "Class":
		return attrMatcher{pattern: classPattern}, nil
	case "Color":
		return attrMatcher{pattern: colorPattern}, nil
	case "LinkTypes":
		return attrMatcher{pattern: linkTypePattern}, nil
	case "FrameTarget":
		return attrMatcher{pattern: targetPattern}, nil
	case "LanguageCode":
		return attrMatcher{pattern: langPattern}, nil
	case "NMTOKENS":
		return attrMatcher{pattern: nmtokensPattern}, nil
	default:
		return attrMatcher{}, types.ConfigErrorf("tag %q attribute %q: unknown attribute type %q", tag, name, spec.Type)
	}
}

func enumPattern(values []string, caseSensitive bool) *regexp.Regexp {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	prefix := "(?i)"
	if caseSensitive {
		prefix = ""
	}
	return regexp.MustCompile(prefix + `^(?:` + strings.Join(quoted, "|") + `)$`)
}

// numberPattern returns nil when no sign is allowed.
func numberPattern(negative, zero, positive bool) *regexp.Regexp {
	var alts []string
	if negative {
		alts = append(alts, `-0*[1-9]\d*`)
	}
	if zero {
		alts = append(alts, `[-+]?0+`)
	}
	if positive {
		alts = append(alts, `\+?0*[1-9]\d*`)
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`^(?:` + strings.Join(alts, "|") + `)$`)
}
