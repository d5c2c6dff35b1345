package api

import (
	"fmt"

	"github.com/solatis/blockkeeper/internal/types"
)

// SanitizedBlock is a sanitized block together with the ID it was stored under.
type SanitizedBlock struct {
	ID    types.BlockID
	Block types.Block
}

// Node renders {id, type, data, tunes}; tunes are omitted only when absent.
func (b SanitizedBlock) Node() types.Node {
	fields := []types.Field{
		types.Pair("id", types.StringNode(string(b.ID))),
		types.Pair("type", types.StringNode(b.Block.Type)),
		types.Pair("data", b.Block.Data),
	}
	if b.Block.TunesPresent() {
		fields = append(fields, types.Pair("tunes", b.Block.Tunes))
	}
	return types.MapNode(fields...)
}

// DocumentResult is the outcome of ProcessDocument. Time and Version are the
// editor's values relayed untouched.
type DocumentResult struct {
	DocumentID types.DocumentID
	Time       types.Node
	Version    types.Node
	Blocks     []SanitizedBlock
}

// Node renders {document_id, time?, blocks, version?}.
func (r DocumentResult) Node() types.Node {
	fields := []types.Field{types.Pair("document_id", types.StringNode(string(r.DocumentID)))}
	if !r.Time.IsNull() {
		fields = append(fields, types.Pair("time", r.Time))
	}
	blocks := make([]types.Node, len(r.Blocks))
	for i, b := range r.Blocks {
		blocks[i] = b.Node()
	}
	fields = append(fields, types.Pair("blocks", types.SeqNode(blocks...)))
	if !r.Version.IsNull() {
		fields = append(fields, types.Pair("version", r.Version))
	}
	return types.MapNode(fields...)
}

func parseSanitizedBlock(n types.Node) (SanitizedBlock, error) {
	block, err := types.ParseBlock(n)
	if err != nil {
		return SanitizedBlock{}, err
	}
	idNode, _ := n.Get("id")
	id, ok := idNode.Str()
	if !ok {
		return SanitizedBlock{}, fmt.Errorf("response block has no string \"id\"")
	}
	return SanitizedBlock{ID: types.BlockID(id), Block: block}, nil
}

func parseDocumentResult(n types.Node) (DocumentResult, error) {
	idNode, _ := n.Get("document_id")
	id, ok := idNode.Str()
	if !ok {
		return DocumentResult{}, fmt.Errorf("response has no string \"document_id\"")
	}

	result := DocumentResult{DocumentID: types.DocumentID(id)}
	result.Time, _ = n.Get("time")
	result.Version, _ = n.Get("version")

	blocks, _ := n.Get("blocks")
	for i, item := range blocks.Items() {
		b, err := parseSanitizedBlock(item)
		if err != nil {
			return DocumentResult{}, fmt.Errorf("block %d: %w", i, err)
		}
		result.Blocks = append(result.Blocks, b)
	}
	return result, nil
}

// decodePayload turns request bytes into a Node, reporting any decode failure
// as a malformed document.
func decodePayload(raw []byte, limit int) (types.Node, error) {
	if len(raw) > limit {
		return types.Node{}, types.DocumentErrorf("payload of %d bytes exceeds limit of %d", len(raw), limit)
	}
	n, err := types.DecodeJSON(raw)
	if err != nil {
		return types.Node{}, types.DocumentErrorf("%v", err)
	}
	return n, nil
}
