package rules

import (
	"fmt"
	"log/slog"

	"github.com/solatis/blockkeeper/internal/types"
)

// Engine validates and sanitizes editor blocks against a rule store.
// Shared by the API service and the CLI; safe for concurrent use.
type Engine struct {
	store  *Store
	markup Markup
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMarkup replaces the store's grammar as string sanitizer.
func WithMarkup(m Markup) Option {
	return func(e *Engine) {
		e.markup = m
	}
}

// NewEngine builds the rule store from cfg.
func NewEngine(cfg types.SchemaConfig, opts ...Option) (*Engine, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:  store,
		markup: store.Grammar(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger.Debug("rule store built",
		"block_types", len(store.tools),
		"custom_tags", len(cfg.CustomTags))
	return e, nil
}

// Store exposes the underlying rule store.
func (e *Engine) Store() *Store {
	return e.store
}

// BlockTypes returns the configured block types, sorted.
func (e *Engine) BlockTypes() []string {
	return e.store.BlockTypes()
}

// ValidateBlock checks data against the rules of blockType.
// An unknown block type is reported before the payload is inspected.
func (e *Engine) ValidateBlock(blockType string, data types.Node) error {
	rs, err := e.store.Lookup(blockType)
	if err != nil {
		return err
	}
	return Validate(rs, data)
}

// SanitizeBlock cleans a validated payload and returns the block to persist.
// Tunes are relayed untouched.
func (e *Engine) SanitizeBlock(blockType string, data, tunes types.Node) (types.Block, error) {
	return e.sanitize(types.Block{Type: blockType, Data: data, Tunes: tunes})
}

// sanitize replaces b.Data with its sanitized copy; the rest of the envelope
// is kept as received.
func (e *Engine) sanitize(b types.Block) (types.Block, error) {
	rs, err := e.store.Lookup(b.Type)
	if err != nil {
		return types.Block{}, err
	}
	clean, err := Sanitize(rs, b.Data, e.markup)
	if err != nil {
		return types.Block{}, err
	}
	b.Data = clean
	return b, nil
}

// ProcessBlock validates then sanitizes one block.
func (e *Engine) ProcessBlock(b types.Block) (types.Block, error) {
	if err := e.ValidateBlock(b.Type, b.Data); err != nil {
		return types.Block{}, err
	}
	return e.sanitize(b)
}

// ProcessDocument validates every block, then sanitizes every block.
// Nothing is sanitized unless the whole document is valid.
func (e *Engine) ProcessDocument(doc types.Document) ([]types.Block, error) {
	for i, b := range doc.Blocks {
		if err := e.ValidateBlock(b.Type, b.Data); err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, b.Type, err)
		}
	}

	out := make([]types.Block, 0, len(doc.Blocks))
	for i, b := range doc.Blocks {
		clean, err := e.sanitize(b)
		if err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, b.Type, err)
		}
		out = append(out, clean)
	}
	return out, nil
}
