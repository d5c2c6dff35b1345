package api

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/types"
)

// ValidateBlock checks a {type, data} envelope against the schema without
// sanitizing or storing anything.
func (s *BlockAPIService) ValidateBlock(ctx context.Context, req *wrapperspb.BytesValue) (resp *emptypb.Empty, err error) {
	ctx, span := s.startSpan(ctx, "BlockAPI.ValidateBlock")
	defer func() { endSpan(span, err) }()

	block, err := s.decodeBlock(req)
	if err != nil {
		return nil, toStatus(err)
	}
	span.SetAttributes(attribute.String("block.type", block.Type))

	err = s.engine.ValidateBlock(block.Type, block.Data)
	s.metrics.recordBlock(ctx, block.Type, err)
	if err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// SanitizeBlock validates a {type, data, tunes} envelope, sanitizes it and
// stores the result as a single-block document. Returns {id, type, data, tunes}.
func (s *BlockAPIService) SanitizeBlock(ctx context.Context, req *wrapperspb.BytesValue) (resp *wrapperspb.BytesValue, err error) {
	ctx, span := s.startSpan(ctx, "BlockAPI.SanitizeBlock")
	defer func() { endSpan(span, err) }()

	workspaceID := auth.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, status.Error(codes.Internal, "missing workspace_id in context")
	}

	block, err := s.decodeBlock(req)
	if err != nil {
		return nil, toStatus(err)
	}
	span.SetAttributes(attribute.String("block.type", block.Type))

	sanitized, err := s.engine.ProcessBlock(block)
	s.metrics.recordBlock(ctx, block.Type, err)
	if err != nil {
		return nil, toStatus(err)
	}

	stored, err := s.store.Save(ctx, workspaceID, types.NewDocumentID(), 0, sanitized)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store block", "workspace_id", workspaceID, "block_type", block.Type, "error", err)
		return nil, toStatus(fmt.Errorf("%w: %v", errStorage, err))
	}

	return encodeNode(SanitizedBlock{ID: stored.ID, Block: stored.Block}.Node())
}

func (s *BlockAPIService) decodeBlock(req *wrapperspb.BytesValue) (types.Block, error) {
	n, err := decodePayload(req.GetValue(), s.cfg.MaxPayloadBytes)
	if err != nil {
		return types.Block{}, err
	}
	return types.ParseBlock(n)
}

func encodeNode(n types.Node) (*wrapperspb.BytesValue, error) {
	raw, err := n.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return wrapperspb.Bytes(raw), nil
}
