package api

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/types"
)

// ProcessDocument validates every block of an editor document, then
// sanitizes and stores all of them under a new document ID. A single invalid
// block rejects the whole document and nothing is stored.
func (s *BlockAPIService) ProcessDocument(ctx context.Context, req *wrapperspb.BytesValue) (resp *wrapperspb.BytesValue, err error) {
	ctx, span := s.startSpan(ctx, "BlockAPI.ProcessDocument")
	defer func() {
		s.metrics.recordDocument(ctx, err)
		endSpan(span, err)
	}()

	workspaceID := auth.WorkspaceFromContext(ctx)
	if workspaceID == "" {
		return nil, status.Error(codes.Internal, "missing workspace_id in context")
	}

	n, err := decodePayload(req.GetValue(), s.cfg.MaxPayloadBytes)
	if err != nil {
		return nil, toStatus(err)
	}
	doc, err := types.ParseDocument(n)
	if err != nil {
		return nil, toStatus(err)
	}
	span.SetAttributes(attribute.Int("document.blocks", len(doc.Blocks)))

	// Reject oversized documents before any block is processed
	if len(doc.Blocks) > s.cfg.MaxDocumentBlocks {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("document has %d blocks, maximum is %d", len(doc.Blocks), s.cfg.MaxDocumentBlocks))
	}

	sanitized, err := s.engine.ProcessDocument(doc)
	if err != nil {
		return nil, toStatus(err)
	}
	for _, b := range sanitized {
		s.metrics.recordBlock(ctx, b.Type, nil)
	}

	documentID := types.NewDocumentID()
	span.SetAttributes(attribute.String("document.id", string(documentID)))

	stored, err := s.store.SaveDocument(ctx, workspaceID, documentID, sanitized)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store document", "workspace_id", workspaceID, "document_id", documentID, "error", err)
		return nil, toStatus(fmt.Errorf("%w: %v", errStorage, err))
	}

	result := DocumentResult{DocumentID: documentID, Time: doc.Time, Version: doc.Version}
	for _, sb := range stored {
		result.Blocks = append(result.Blocks, SanitizedBlock{ID: sb.ID, Block: sb.Block})
	}

	s.logger.DebugContext(ctx, "document stored", "workspace_id", workspaceID, "document_id", documentID, "blocks", len(stored))
	return encodeNode(result.Node())
}
