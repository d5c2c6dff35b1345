package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/blockkeeper/internal/types"
)

// ErrBlockNotFound is returned when a block does not exist in the workspace.
var ErrBlockNotFound = errors.New("block not found")

// BlockStore persists sanitized blocks. Payloads are stored as JSON text in
// their original key order. Absent tunes are stored as SQL NULL, explicit
// null tunes as the JSON text null.
type BlockStore struct {
	queries *Queries
	now     func() time.Time
}

// NewBlockStore creates a store backed by the named queries.
func NewBlockStore(queries *Queries) *BlockStore {
	return &BlockStore{queries: queries, now: time.Now}
}

type blockRow struct {
	BlockID     string         `db:"block_id"`
	WorkspaceID string         `db:"workspace_id"`
	DocumentID  string         `db:"document_id"`
	Position    int            `db:"position"`
	BlockType   string         `db:"block_type"`
	Data        string         `db:"data"`
	Tunes       sql.NullString `db:"tunes"`
	CreatedAt   string         `db:"created_at"`
}

// Save stores one sanitized block at a document position.
func (s *BlockStore) Save(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID, position int, block types.Block) (types.StoredBlock, error) {
	return s.save(ctx, s.queries, workspaceID, documentID, position, block)
}

// SaveDocument stores all blocks of a document in one transaction, positions
// following slice order.
func (s *BlockStore) SaveDocument(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID, blocks []types.Block) ([]types.StoredBlock, error) {
	stored := make([]types.StoredBlock, 0, len(blocks))
	err := s.queries.InTx(ctx, func(q *Queries) error {
		for i, block := range blocks {
			sb, err := s.save(ctx, q, workspaceID, documentID, i, block)
			if err != nil {
				return err
			}
			stored = append(stored, sb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *BlockStore) save(ctx context.Context, q *Queries, workspaceID types.WorkspaceID, documentID types.DocumentID, position int, block types.Block) (types.StoredBlock, error) {
	data, err := block.Data.MarshalJSON()
	if err != nil {
		return types.StoredBlock{}, fmt.Errorf("encode block data: %w", err)
	}

	var tunes sql.NullString
	if block.TunesPresent() {
		raw, err := block.Tunes.MarshalJSON()
		if err != nil {
			return types.StoredBlock{}, fmt.Errorf("encode block tunes: %w", err)
		}
		tunes = sql.NullString{String: string(raw), Valid: true}
	}

	sb := types.StoredBlock{
		ID:          types.NewBlockID(),
		WorkspaceID: workspaceID,
		DocumentID:  documentID,
		Position:    position,
		Block:       block,
		CreatedAt:   s.now().UTC(),
	}

	_, err = q.Exec(ctx, "insert-block",
		string(sb.ID), string(workspaceID), string(documentID), position,
		block.Type, string(data), tunes, sb.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.StoredBlock{}, fmt.Errorf("insert block: %w", err)
	}
	return sb, nil
}

// Get returns a block by ID within a workspace.
func (s *BlockStore) Get(ctx context.Context, workspaceID types.WorkspaceID, id types.BlockID) (types.StoredBlock, error) {
	var row blockRow
	err := s.queries.Get(ctx, "get-block", &row, string(workspaceID), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredBlock{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if err != nil {
		return types.StoredBlock{}, fmt.Errorf("get block: %w", err)
	}
	return row.toStoredBlock()
}

// ListByDocument returns the blocks of a document ordered by position.
func (s *BlockStore) ListByDocument(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID) ([]types.StoredBlock, error) {
	var rows []blockRow
	if err := s.queries.Select(ctx, "list-blocks-by-document", &rows, string(workspaceID), string(documentID)); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	blocks := make([]types.StoredBlock, 0, len(rows))
	for _, row := range rows {
		sb, err := row.toStoredBlock()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, sb)
	}
	return blocks, nil
}

// DeleteDocument removes every block of a document. Returns the number of
// rows removed.
func (s *BlockStore) DeleteDocument(ctx context.Context, workspaceID types.WorkspaceID, documentID types.DocumentID) (int64, error) {
	res, err := s.queries.Exec(ctx, "delete-document", string(workspaceID), string(documentID))
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	return res.RowsAffected()
}

func (r blockRow) toStoredBlock() (types.StoredBlock, error) {
	data, err := types.DecodeJSON([]byte(r.Data))
	if err != nil {
		return types.StoredBlock{}, fmt.Errorf("decode block %s data: %w", r.BlockID, err)
	}

	tunes := types.NullNode()
	if r.Tunes.Valid {
		if tunes, err = types.DecodeJSON([]byte(r.Tunes.String)); err != nil {
			return types.StoredBlock{}, fmt.Errorf("decode block %s tunes: %w", r.BlockID, err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return types.StoredBlock{}, fmt.Errorf("block %s created_at: %w", r.BlockID, err)
	}

	return types.StoredBlock{
		ID:          types.BlockID(r.BlockID),
		WorkspaceID: types.WorkspaceID(r.WorkspaceID),
		DocumentID:  types.DocumentID(r.DocumentID),
		Position:    r.Position,
		Block:       types.Block{Type: r.BlockType, Data: data, Tunes: tunes, HasTunes: r.Tunes.Valid},
		CreatedAt:   createdAt,
	}, nil
}
