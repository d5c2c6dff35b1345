package rules

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/blockkeeper/internal/markup"
	"github.com/solatis/blockkeeper/internal/types"
)

// recordingMarkup tags every string with the allowedTags it was cleaned with.
type recordingMarkup struct {
	calls int
}

func (m *recordingMarkup) Sanitize(input, allowedTags string) (string, error) {
	m.calls++
	return "[" + allowedTags + "]" + input, nil
}

func newGrammar(t *testing.T) *markup.Grammar {
	t.Helper()
	g, err := markup.NewGrammar(nil)
	if err != nil {
		t.Fatalf("NewGrammar() error = %v", err)
	}
	return g
}

func TestSanitize_Dispatch(t *testing.T) {
	rs := ruleSet(t, `{
		"text": {"type": "string", "allowedTags": "b"},
		"raw": {"type": "string", "allowedTags": "*"},
		"caption": {"type": "string", "required": false, "allow_null": true},
		"level": "integer",
		"align": ["left", "center"],
		"items": {"type": "array", "data": {"-": {"type": "string", "allowedTags": "i"}}}
	}`)
	data := decode(t, `{
		"text": "t",
		"raw": "<script>r</script>",
		"caption": null,
		"level": 2,
		"align": "left",
		"items": ["a", "b"]
	}`)

	m := &recordingMarkup{}
	got, err := Sanitize(rs, data, m)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}

	want := decode(t, `{
		"text": "[b]t",
		"raw": "<script>r</script>",
		"caption": null,
		"level": 2,
		"align": "[]left",
		"items": ["[i]a", "[i]b"]
	}`)
	if !got.Equal(want) {
		t.Errorf("Sanitize() = %s\nwant %s", got, want)
	}
	if m.calls != 4 {
		t.Errorf("markup calls = %d, want 4", m.calls)
	}
}

func TestSanitize_NestedRecordList(t *testing.T) {
	rs := ruleSet(t, `{"items": {"type": "array", "data": {"title": "string"}}}`)
	data := decode(t, `{"items": [{"title": "<script>x</script>hi"}]}`)

	if err := Validate(rs, data); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	got, err := Sanitize(rs, data, newGrammar(t))
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if want := decode(t, `{"items": [{"title": "hi"}]}`); !got.Equal(want) {
		t.Errorf("Sanitize() = %s, want %s", got, want)
	}
}

func TestSanitize_DropsEntriesWithoutRule(t *testing.T) {
	rs := ruleSet(t, `{"text": "string"}`)
	got, err := Sanitize(rs, decode(t, `{"text": "a", "extra": "b"}`), &recordingMarkup{})
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if _, ok := got.Get("extra"); ok {
		t.Errorf("Sanitize() = %s, want extra dropped", got)
	}
}

func TestSanitize_RealGrammar(t *testing.T) {
	rs := ruleSet(t, `{"text": {"type": "string", "allowedTags": "b,a[href]"}}`)
	data := decode(t, `{"text": "<b>x</b><i>y</i><a href=\"javascript:z\" onclick=\"q\">l</a>"}`)

	got, err := Sanitize(rs, data, newGrammar(t))
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	text, _ := got.Get("text")
	s, _ := text.Str()
	if s != "<b>x</b>y<a>l</a>" {
		t.Errorf("text = %q", s)
	}
}

func genPayload() gopter.Gen {
	fragments := []string{"plain", "<b>bold</b>", "<script>x</script>", "<i>it</i>", " ", "&lt;", "<a href=\"https://e.com\">l</a>"}
	return gen.SliceOfN(3, gen.SliceOf(gen.IntRange(0, len(fragments)-1))).Map(func(picks [][]int) types.Node {
		str := func(idx []int) types.Node {
			var sb strings.Builder
			for _, i := range idx {
				sb.WriteString(fragments[i])
			}
			return types.StringNode(sb.String())
		}
		return types.MapNode(
			types.Pair("text", str(picks[0])),
			types.Pair("items", types.SeqNode(str(picks[1]), str(picks[2]))),
			types.Pair("records", types.SeqNode(types.MapNode(types.Pair("title", str(picks[2]))))),
			types.Pair("level", types.IntNode(int64(len(picks[0])))),
		)
	})
}

const propertyRules = `{
	"text": {"type": "string", "allowedTags": "b,a[href]"},
	"items": {"type": "array", "data": {"-": {"type": "string", "allowedTags": "i"}}},
	"records": {"type": "array", "data": {"title": "string"}},
	"level": "integer"
}`

// Property-based test: sanitize keeps the key set and order at every level
func TestSanitize_PropertyKeySetPreserved(t *testing.T) {
	rs := ruleSet(t, propertyRules)
	g := newGrammar(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same keys in the same order", prop.ForAll(
		func(data types.Node) bool {
			if Validate(rs, data) != nil {
				return false
			}
			got, err := Sanitize(rs, data, g)
			if err != nil {
				return false
			}
			return sameShape(data, got)
		},
		genPayload(),
	))

	properties.TestingRun(t)
}

// Property-based test: sanitizing a sanitized payload changes nothing
func TestSanitize_PropertyIdempotent(t *testing.T) {
	rs := ruleSet(t, propertyRules)
	g := newGrammar(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sanitize(sanitize(x)) == sanitize(x)", prop.ForAll(
		func(data types.Node) bool {
			once, err := Sanitize(rs, data, g)
			if err != nil {
				return false
			}
			if Validate(rs, once) != nil {
				return false
			}
			twice, err := Sanitize(rs, once, g)
			if err != nil {
				return false
			}
			return once.Equal(twice)
		},
		genPayload(),
	))

	properties.TestingRun(t)
}

func sameShape(a, b types.Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if !a.IsCollection() {
		return true
	}
	ae, be := a.Entries(), b.Entries()
	if len(ae) != len(be) {
		return false
	}
	for i := range ae {
		if ae[i].Key != be[i].Key || !sameShape(ae[i].Value, be[i].Value) {
			return false
		}
	}
	return true
}
