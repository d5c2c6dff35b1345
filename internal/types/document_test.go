package types

import (
	"errors"
	"testing"
)

func mustDecode(t *testing.T, data string) Node {
	t.Helper()
	n, err := DecodeJSON([]byte(data))
	if err != nil {
		t.Fatalf("DecodeJSON(%s) error = %v", data, err)
	}
	return n
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(mustDecode(t, `{
		"time": 1700000000000,
		"blocks": [
			{"type": "paragraph", "data": {"text": "hi"}},
			{"type": "header", "data": {"text": "T", "level": 2}, "tunes": {"anchor": "x"}}
		],
		"version": "2.28.0"
	}`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("len(Blocks) = %d, want 2", len(doc.Blocks))
	}
	if doc.Blocks[1].Type != "header" {
		t.Errorf("Blocks[1].Type = %q, want header", doc.Blocks[1].Type)
	}
	if doc.Blocks[0].Tunes.Kind() != KindNull {
		t.Errorf("Blocks[0].Tunes = %v, want null", doc.Blocks[0].Tunes)
	}
	if v, _ := doc.Version.Str(); v != "2.28.0" {
		t.Errorf("Version = %v", doc.Version)
	}
}

func TestParseDocument_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"root not object", `[]`},
		{"missing blocks", `{"time": 1}`},
		{"blocks not array", `{"blocks": {}}`},
		{"empty blocks", `{"blocks": []}`},
		{"block not object", `{"blocks": ["x"]}`},
		{"missing type", `{"blocks": [{"data": {}}]}`},
		{"type not string", `{"blocks": [{"type": 1, "data": {}}]}`},
		{"missing data", `{"blocks": [{"type": "paragraph"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument(mustDecode(t, tt.data))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("ParseDocument() error = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestBlock_MarshalJSONOmitsNullTunes(t *testing.T) {
	b := Block{Type: "paragraph", Data: MapNode(Pair("text", StringNode("hi")))}
	out, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(out) != `{"type":"paragraph","data":{"text":"hi"}}` {
		t.Errorf("MarshalJSON() = %s", out)
	}
}

func TestParseBlock_TunesPresence(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"absent", `{"type": "p", "data": {}}`, `{"type":"p","data":{}}`},
		{"explicit null", `{"type": "p", "data": {}, "tunes": null}`, `{"type":"p","data":{},"tunes":null}`},
		{"object", `{"type": "p", "data": {}, "tunes": {"a": 1}}`, `{"type":"p","data":{},"tunes":{"a":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBlock(mustDecode(t, tt.data))
			if err != nil {
				t.Fatalf("ParseBlock() error = %v", err)
			}
			out, err := b.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", out, tt.want)
			}
		})
	}
}

func TestRuleSetFromNode(t *testing.T) {
	rs, err := RuleSetFromNode(mustDecode(t, `{"text": "string", "alignment": ["left", "center"], "items": {"type": "array", "data": {"-": "string"}}, "opts": {}}`))
	if err != nil {
		t.Fatalf("RuleSetFromNode() error = %v", err)
	}

	want := []RawRuleKind{RawBareType, RawLiteralList, RawCanonical, RawLiteralList}
	for i, e := range rs.Entries() {
		if e.Rule.Kind != want[i] {
			t.Errorf("entry %q kind = %v, want %v", e.Key, e.Rule.Kind, want[i])
		}
	}
	if rs.HasWildcard() {
		t.Error("HasWildcard() = true, want false")
	}

	if _, err := RuleSetFromNode(StringNode("x")); !errors.Is(err, ErrConfig) {
		t.Errorf("RuleSetFromNode(string) error = %v, want ErrConfig", err)
	}
	if _, err := RuleSetFromNode(SeqNode()); err != nil {
		t.Errorf("RuleSetFromNode(empty sequence) error = %v", err)
	}
}

func TestFieldError_Message(t *testing.T) {
	err := &FieldError{
		Err:      ErrInvalidType,
		Path:     []Key{NamedKey("items"), PositionalKey(2), NamedKey("title")},
		Value:    IntNode(5),
		Expected: "string",
	}
	if got := err.Error(); got != `field "items[2].title": expected string, got integer` {
		t.Errorf("Error() = %s", got)
	}
	if !errors.Is(err, ErrInvalidType) {
		t.Error("errors.Is(err, ErrInvalidType) = false")
	}
	if k := err.Key(); k.String() != "title" {
		t.Errorf("Key() = %v, want title", k)
	}
}
