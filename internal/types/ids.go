package types

import (
	"time"

	"github.com/google/uuid"
)

// NewBlockID generates a UUIDv7 block identifier.
// Time-ordered IDs keep inserts for one document clustered in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewBlockID() BlockID {
	return BlockID(uuid.Must(uuid.NewV7()).String())
}

// NewDocumentID generates a UUIDv7 document identifier.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.Must(uuid.NewV7()).String())
}

// ParseBlockID validates and converts a string to BlockID.
func ParseBlockID(s string) (BlockID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return BlockID(s), nil
}

// ParseDocumentID validates and converts a string to DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return DocumentID(s), nil
}

// BlockIDTime extracts the timestamp embedded in a UUIDv7 block ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func BlockIDTime(id BlockID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
