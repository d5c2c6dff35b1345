// Package api implements the BlockAPI gRPC service: validation, sanitization
// and persistence of editor blocks for an authenticated workspace.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/solatis/blockkeeper/internal/core/config"
	"github.com/solatis/blockkeeper/internal/rules"
	"github.com/solatis/blockkeeper/internal/types"
)

const instrumentationName = "github.com/solatis/blockkeeper/internal/core/api"

// BlockStore persists sanitized blocks. Implemented by *db.BlockStore.
type BlockStore interface {
	Save(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID, position int, block types.Block) (types.StoredBlock, error)
	SaveDocument(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID, blocks []types.Block) ([]types.StoredBlock, error)
}

// BlockAPIService implements BlockAPIServer.
// Thin orchestration layer over the rules engine and the block store.
type BlockAPIService struct {
	engine  *rules.Engine
	store   BlockStore
	cfg     *config.BlockAPIConfig
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *serviceMetrics
}

// Option configures a BlockAPIService.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithTracerProvider sets the provider for request spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the provider for block counters. Defaults to the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// NewBlockAPIService creates the service with its dependencies.
func NewBlockAPIService(engine *rules.Engine, store BlockStore, cfg *config.BlockAPIConfig, opts ...Option) (*BlockAPIService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	o := serviceOptions{
		logger:         slog.New(slog.DiscardHandler),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	metrics, err := newServiceMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	return &BlockAPIService{
		engine:  engine,
		store:   store,
		cfg:     cfg,
		logger:  o.logger,
		tracer:  o.tracerProvider.Tracer(instrumentationName),
		metrics: metrics,
	}, nil
}
