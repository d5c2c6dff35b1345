package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/types"
)

// BlockAPIClient calls the BlockAPI service and converts JSON envelopes to
// and from payload trees.
type BlockAPIClient struct {
	cc     grpc.ClientConnInterface
	apiKey string
}

// NewBlockAPIClient creates a client that sends apiKey with every call.
func NewBlockAPIClient(cc grpc.ClientConnInterface, apiKey string) *BlockAPIClient {
	return &BlockAPIClient{cc: cc, apiKey: apiKey}
}

func (c *BlockAPIClient) outgoing(ctx context.Context) context.Context {
	if c.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, auth.APIKeyHeader, c.apiKey)
}

func (c *BlockAPIClient) invoke(ctx context.Context, method string, payload types.Node, out any, opts ...grpc.CallOption) error {
	raw, err := payload.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.cc.Invoke(c.outgoing(ctx), method, wrapperspb.Bytes(raw), out, opts...)
}

// ValidateBlock checks data against the rules for blockType.
func (c *BlockAPIClient) ValidateBlock(ctx context.Context, blockType string, data types.Node, opts ...grpc.CallOption) error {
	block := types.Block{Type: blockType, Data: data}
	return c.invoke(ctx, ValidateBlockMethod, block.Node(), new(emptypb.Empty), opts...)
}

// SanitizeBlock validates, sanitizes and stores one block.
func (c *BlockAPIClient) SanitizeBlock(ctx context.Context, block types.Block, opts ...grpc.CallOption) (SanitizedBlock, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.invoke(ctx, SanitizeBlockMethod, block.Node(), out, opts...); err != nil {
		return SanitizedBlock{}, err
	}
	n, err := types.DecodeJSON(out.GetValue())
	if err != nil {
		return SanitizedBlock{}, fmt.Errorf("decode response: %w", err)
	}
	return parseSanitizedBlock(n)
}

// ProcessDocument sends a whole editor document.
func (c *BlockAPIClient) ProcessDocument(ctx context.Context, document types.Node, opts ...grpc.CallOption) (DocumentResult, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.invoke(ctx, ProcessDocumentMethod, document, out, opts...); err != nil {
		return DocumentResult{}, err
	}
	n, err := types.DecodeJSON(out.GetValue())
	if err != nil {
		return DocumentResult{}, fmt.Errorf("decode response: %w", err)
	}
	return parseDocumentResult(n)
}
