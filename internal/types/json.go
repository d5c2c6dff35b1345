package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DecodeJSON parses a JSON document into a Node.
// Object key order is preserved; integral literals that fit in int64 become
// Integer nodes, every other numeric literal becomes a Number.
func DecodeJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeValue(dec, 0)
	if err != nil {
		return Node{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, fmt.Errorf("invalid JSON: trailing data after top-level value")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder, depth int) (Node, error) {
	if depth > MaxNodeDepth {
		return Node{}, ErrPayloadTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Node{}, fmt.Errorf("invalid JSON: unexpected end of input")
		}
		return Node{}, fmt.Errorf("invalid JSON: %w", err)
	}

	switch t := tok.(type) {
	case nil:
		return NullNode(), nil
	case bool:
		return BoolNode(t), nil
	case string:
		return StringNode(t), nil
	case json.Number:
		return numberNode(t)
	case json.Delim:
		switch t {
		case '[':
			items := []Node{}
			for dec.More() {
				item, err := decodeValue(dec, depth+1)
				if err != nil {
					return Node{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, fmt.Errorf("invalid JSON: %w", err)
			}
			return SeqNode(items...), nil
		case '{':
			fields := newFieldBuilder(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Node{}, fmt.Errorf("invalid JSON: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Node{}, fmt.Errorf("invalid JSON: object key is not a string")
				}
				value, err := decodeValue(dec, depth+1)
				if err != nil {
					return Node{}, err
				}
				fields.set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, fmt.Errorf("invalid JSON: %w", err)
			}
			return fields.node(), nil
		}
	}
	return Node{}, fmt.Errorf("invalid JSON: unexpected token %v", tok)
}

func numberNode(num json.Number) (Node, error) {
	s := num.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntNode(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Node{}, fmt.Errorf("invalid JSON: number %s out of range", s)
	}
	return NumberNode(f), nil
}

// MarshalJSON writes n in mapping insertion order without HTML escaping.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes with DecodeJSON so struct fields of type Node keep
// key order and the integer/number distinction.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

func (n Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBoolean:
		buf.WriteString(strconv.FormatBool(n.b))
	case KindInteger:
		buf.WriteString(strconv.FormatInt(n.i, 10))
	case KindNumber:
		if math.IsNaN(n.num) || math.IsInf(n.num, 0) {
			return fmt.Errorf("cannot encode %v as JSON", n.num)
		}
		s := strconv.FormatFloat(n.num, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case KindString:
		return encodeString(buf, n.str)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode node kind %d", n.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
