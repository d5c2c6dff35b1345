// Package types provides domain models shared across blockkeeper components.
//
// Payload trees (Node), payload keys, raw schema rules and the editor block
// envelope live here so that the rules engine, the schema loader and the API
// layer agree on one representation. ID utilities in ids.go import uuid;
// everything else depends on the standard library only.
package types

import "time"

// BlockID represents a UUIDv7 identifier assigned to a persisted block.
// String alias keeps JSON serialization a plain string.
type BlockID string

// DocumentID represents a UUIDv7 identifier grouping blocks of one document.
type DocumentID string

// WorkspaceID identifies the tenant an API key belongs to.
type WorkspaceID string

// Block is one editor block: a type tag, its payload and opaque tunes.
// Tunes are relayed to the caller untouched. HasTunes records an explicit
// "tunes" entry so that "tunes": null survives a round trip.
type Block struct {
	Type     string
	Data     Node
	Tunes    Node
	HasTunes bool
}

// TunesPresent reports whether the envelope carries a "tunes" entry.
func (b Block) TunesPresent() bool {
	return b.HasTunes || !b.Tunes.IsNull()
}

// StoredBlock is a sanitized block as persisted by the block store.
type StoredBlock struct {
	ID          BlockID
	WorkspaceID WorkspaceID
	DocumentID  DocumentID
	Position    int
	Block       Block
	CreatedAt   time.Time
}

// Resource limits applied while decoding and processing payloads.
const (
	// MaxNodeDepth bounds payload nesting so recursive walks cannot exhaust the stack.
	MaxNodeDepth = 256

	// MaxPayloadSize limits a single request body.
	MaxPayloadSize = 4 * 1024 * 1024

	// MaxDocumentBlocks limits the number of blocks in one editor document.
	MaxDocumentBlocks = 1000
)
