package api

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/solatis/blockkeeper/internal/core/auth"
)

// Outcome attribute values for the blocks counter.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

type serviceMetrics struct {
	// blocks counts processed blocks by type and outcome
	blocks metric.Int64Counter

	// documents counts ProcessDocument calls by outcome
	documents metric.Int64Counter
}

func newServiceMetrics(meter metric.Meter) (*serviceMetrics, error) {
	m := &serviceMetrics{}
	var err error

	m.blocks, err = meter.Int64Counter(
		"blockkeeper.blocks",
		metric.WithDescription("Blocks processed by the block API"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create blocks counter: %w", err)
	}

	m.documents, err = meter.Int64Counter(
		"blockkeeper.documents",
		metric.WithDescription("Editor documents processed by the block API"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create documents counter: %w", err)
	}

	return m, nil
}

func (m *serviceMetrics) recordBlock(ctx context.Context, blockType string, err error) {
	m.blocks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("block.type", blockType),
		attribute.String("outcome", outcome(err)),
	))
}

func (m *serviceMetrics) recordDocument(ctx context.Context, err error) {
	m.documents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

func outcome(err error) string {
	if err != nil {
		return outcomeRejected
	}
	return outcomeAccepted
}

// startSpan opens a server span tagged with the caller's workspace.
func (s *BlockAPIService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("workspace.id", string(auth.WorkspaceFromContext(ctx))))
	return s.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(attrs...))
}

// endSpan records err on the span and closes it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
