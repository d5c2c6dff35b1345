package auth

import "errors"

// Missing, malformed and unknown keys all map to UNAUTHENTICATED so callers
// cannot probe which keys exist. Revoked keys map to PERMISSION_DENIED.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrNoSecrets        = errors.New("no HMAC secrets configured (set BK_HMAC_SECRET)")
	ErrStorage          = errors.New("database error")
)
