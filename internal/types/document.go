package types

import "fmt"

// Document is an editor save: an ordered list of blocks plus the editor's
// timestamp and version, both optional and relayed as-is.
type Document struct {
	Time    Node
	Blocks  []Block
	Version Node
}

// ParseDocument interprets a decoded editor document.
// The root must be a mapping with a non-empty "blocks" sequence; every block
// must be a mapping carrying a string "type" and a "data" entry.
func ParseDocument(n Node) (Document, error) {
	if n.Kind() != KindMapping {
		return Document{}, DocumentErrorf("document must be an object, got %s", n.Kind())
	}

	blocksNode, ok := n.Get("blocks")
	if !ok {
		return Document{}, DocumentErrorf("missing \"blocks\"")
	}
	if blocksNode.Kind() != KindSequence {
		return Document{}, DocumentErrorf("\"blocks\" must be an array, got %s", blocksNode.Kind())
	}
	if blocksNode.Len() == 0 {
		return Document{}, DocumentErrorf("\"blocks\" is empty")
	}

	doc := Document{Blocks: make([]Block, 0, blocksNode.Len())}
	doc.Time, _ = n.Get("time")
	doc.Version, _ = n.Get("version")

	for i, item := range blocksNode.Items() {
		block, err := parseBlock(item)
		if err != nil {
			return Document{}, fmt.Errorf("block %d: %w", i, err)
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc, nil
}

// ParseBlock interprets a single {type, data, tunes} envelope.
func ParseBlock(n Node) (Block, error) {
	return parseBlock(n)
}

func parseBlock(n Node) (Block, error) {
	if n.Kind() != KindMapping {
		return Block{}, DocumentErrorf("block must be an object, got %s", n.Kind())
	}
	typeNode, ok := n.Get("type")
	if !ok {
		return Block{}, DocumentErrorf("block is missing \"type\"")
	}
	blockType, ok := typeNode.Str()
	if !ok {
		return Block{}, DocumentErrorf("block \"type\" must be a string, got %s", typeNode.Kind())
	}
	data, ok := n.Get("data")
	if !ok {
		return Block{}, DocumentErrorf("block %q is missing \"data\"", blockType)
	}
	tunes, hasTunes := n.Get("tunes")
	return Block{Type: blockType, Data: data, Tunes: tunes, HasTunes: hasTunes}, nil
}

// Node renders the block envelope. Tunes are omitted only when absent.
func (b Block) Node() Node {
	fields := []Field{Pair("type", StringNode(b.Type)), Pair("data", b.Data)}
	if b.TunesPresent() {
		fields = append(fields, Pair("tunes", b.Tunes))
	}
	return MapNode(fields...)
}

// MarshalJSON encodes the block envelope in type, data, tunes order.
func (b Block) MarshalJSON() ([]byte, error) {
	return b.Node().MarshalJSON()
}

// Node renders the document envelope with the given blocks.
func (d Document) Node() Node {
	var fields []Field
	if !d.Time.IsNull() {
		fields = append(fields, Pair("time", d.Time))
	}
	blocks := make([]Node, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = b.Node()
	}
	fields = append(fields, Pair("blocks", SeqNode(blocks...)))
	if !d.Version.IsNull() {
		fields = append(fields, Pair("version", d.Version))
	}
	return MapNode(fields...)
}
