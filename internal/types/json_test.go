package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDecodeJSON_Kinds(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind Kind
	}{
		{"null", `null`, KindNull},
		{"string", `"hi"`, KindString},
		{"integer", `42`, KindInteger},
		{"negative integer", `-7`, KindInteger},
		{"integral float literal", `3.0`, KindNumber},
		{"fraction", `3.5`, KindNumber},
		{"exponent", `1e3`, KindNumber},
		{"int64 overflow", `9223372036854775808`, KindNumber},
		{"boolean", `true`, KindBoolean},
		{"array", `[1, "a"]`, KindSequence},
		{"empty object", `{}`, KindMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DecodeJSON([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
			if n.Kind() != tt.kind {
				t.Errorf("DecodeJSON() kind = %v, want %v", n.Kind(), tt.kind)
			}
		})
	}
}

func TestDecodeJSON_PreservesKeyOrder(t *testing.T) {
	n, err := DecodeJSON([]byte(`{"z": 1, "a": 2, "m": {"y": true, "b": false}}`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}

	var keys []string
	for _, f := range n.Fields() {
		keys = append(keys, f.Key)
	}
	if got := strings.Join(keys, ","); got != "z,a,m" {
		t.Errorf("key order = %s, want z,a,m", got)
	}

	out, err := n.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(out) != `{"z":1,"a":2,"m":{"y":true,"b":false}}` {
		t.Errorf("MarshalJSON() = %s", out)
	}
}

func TestDecodeJSON_NumericKeysStayNamed(t *testing.T) {
	n, err := DecodeJSON([]byte(`{"0": "a", "1": "b"}`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	for _, e := range n.Entries() {
		if e.Key.Positional {
			t.Errorf("key %q decoded as positional", e.Key.Name)
		}
	}
}

func TestDecodeJSON_DuplicateKeyReplacesInPlace(t *testing.T) {
	n, err := DecodeJSON([]byte(`{"a": 1, "b": 2, "a": 3}`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	out, _ := n.MarshalJSON()
	if string(out) != `{"a":3,"b":2}` {
		t.Errorf("MarshalJSON() = %s, want {\"a\":3,\"b\":2}", out)
	}
}

func TestDecodeJSON_ManyKeysLinear(t *testing.T) {
	const keys = 100_000

	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < keys; i++ {
		fmt.Fprintf(&b, `"k%d":%d,`, i, i)
	}
	b.WriteString(`"k0":-1}`)

	start := time.Now()
	n, err := DecodeJSON([]byte(b.String()))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if n.Len() != keys {
		t.Fatalf("Len() = %d, want %d", n.Len(), keys)
	}
	if v, _ := n.Fields()[0].Value.Int(); v != -1 {
		t.Errorf("duplicate k0 = %d, want -1 in first position", v)
	}
	if elapsed > 5*time.Second {
		t.Errorf("DecodeJSON() of %d keys took %v", keys, elapsed)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty input", ``, nil},
		{"trailing data", `{} {}`, nil},
		{"truncated", `{"a": [1, 2`, nil},
		{"too deep", strings.Repeat("[", MaxNodeDepth+2) + strings.Repeat("]", MaxNodeDepth+2), ErrPayloadTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.data))
			if err == nil {
				t.Fatal("DecodeJSON() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJSON_NoHTMLEscaping(t *testing.T) {
	out, err := StringNode(`<b>a & b</b>`).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(out) != `"<b>a & b</b>"` {
		t.Errorf("MarshalJSON() = %s", out)
	}
}

func TestMarshalJSON_NumberKeepsFraction(t *testing.T) {
	out, err := NumberNode(3).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	n, err := DecodeJSON(out)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if n.Kind() != KindNumber {
		t.Errorf("round trip kind = %v, want number (encoded %s)", n.Kind(), out)
	}
}

// Property-based test: decoding an encoded integer mapping yields an equal tree
func TestDecodeJSON_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encode then decode preserves the tree", prop.ForAll(
		func(s string, i int64, b bool) bool {
			n := MapNode(
				Pair("s", StringNode(s)),
				Pair("i", IntNode(i)),
				Pair("list", SeqNode(BoolNode(b), NullNode())),
			)
			out, err := n.MarshalJSON()
			if err != nil {
				return false
			}
			back, err := DecodeJSON(out)
			if err != nil {
				return false
			}
			return back.Equal(n)
		},
		gen.AlphaString(),
		gen.Int64(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
