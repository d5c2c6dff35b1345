// Package auth provides HMAC-based API key authentication for gRPC services.
//
// API keys look like bk-v1-<secret_id>-<random>. The secret_id selects one of
// the HMAC secrets loaded from BK_HMAC_SECRET*, and the HMAC of the full key
// is looked up in the api_keys table to resolve the owning workspace.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/solatis/blockkeeper/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyHeader is the metadata key carrying the API key.
const APIKeyHeader = "x-api-key"

type contextKey string

const workspaceIDKey = contextKey("workspace_id")

// lastUsedThrottle bounds how often last_used_at is rewritten for a busy key.
const lastUsedThrottle = time.Minute

// Queries is the subset of *db.Queries used for key storage.
type Queries interface {
	Get(ctx context.Context, name string, dest any, args ...any) error
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator validates API keys against stored HMAC digests.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and key storage.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     time.Now,
	}
}

type apiKeyRow struct {
	APIKeyID    string         `db:"api_key_id"`
	WorkspaceID string         `db:"workspace_id"`
	RevokedAt   sql.NullString `db:"revoked_at"`
	LastUsedAt  sql.NullString `db:"last_used_at"`
}

// Authenticate validates an API key and returns the workspace it belongs to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.WorkspaceID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row apiKeyRow
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	now := a.now().UTC()
	if shouldUpdateLastUsed(row.LastUsedAt, now) {
		// Best effort; a failed touch must not reject a valid key.
		_, _ = a.queries.Exec(ctx, "update-last-used", now.Format(time.RFC3339Nano), row.APIKeyID)
	}

	return types.WorkspaceID(row.WorkspaceID), nil
}

func shouldUpdateLastUsed(lastUsed sql.NullString, now time.Time) bool {
	if !lastUsed.Valid {
		return true
	}
	t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
	if err != nil {
		return true
	}
	return now.Sub(t) > lastUsedThrottle
}

// IssuedKey is a freshly created API key. Key is only available here; the
// database keeps its HMAC.
type IssuedKey struct {
	ID          string
	WorkspaceID types.WorkspaceID
	Name        string
	Key         string
}

// IssueKey creates and stores a new API key for a workspace. The key is bound
// to the newest configured secret (secret IDs are UUIDv7, so the largest is
// the newest).
func (a *Authenticator) IssueKey(ctx context.Context, workspaceID types.WorkspaceID, name string) (IssuedKey, error) {
	if workspaceID == "" {
		return IssuedKey{}, fmt.Errorf("workspace ID is required")
	}
	if len(a.secrets) == 0 {
		return IssuedKey{}, ErrNoSecrets
	}

	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	secretID := ids[len(ids)-1]

	key, err := GenerateAPIKey(secretID)
	if err != nil {
		return IssuedKey{}, err
	}

	issued := IssuedKey{
		ID:          uuid.Must(uuid.NewV7()).String(),
		WorkspaceID: workspaceID,
		Name:        name,
		Key:         key,
	}
	_, err = a.queries.Exec(ctx, "insert-api-key",
		issued.ID, string(workspaceID), name, secretID,
		ComputeHMAC(a.secrets[secretID], key), a.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return IssuedKey{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return issued, nil
}

// RevokeKey marks an API key as revoked. Revoking twice is not an error.
func (a *Authenticator) RevokeKey(ctx context.Context, apiKeyID string) error {
	if _, err := a.queries.Exec(ctx, "revoke-api-key", a.now().UTC().Format(time.RFC3339Nano), apiKeyID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// UnaryInterceptor authenticates every call except the health service and
// stores the workspace ID in the request context.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isHealthMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		keys := md.Get(APIKeyHeader)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		workspaceID, err := a.Authenticate(ctx, keys[0])
		if err != nil {
			return nil, statusFor(err)
		}

		return handler(WithWorkspace(ctx, workspaceID), req)
	}
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrStorage):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func isHealthMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

// WithWorkspace returns a context carrying the authenticated workspace ID.
func WithWorkspace(ctx context.Context, workspaceID types.WorkspaceID) context.Context {
	return context.WithValue(ctx, workspaceIDKey, workspaceID)
}

// WorkspaceFromContext extracts the workspace ID.
// Returns empty string if not found.
func WorkspaceFromContext(ctx context.Context) types.WorkspaceID {
	if id, ok := ctx.Value(workspaceIDKey).(types.WorkspaceID); ok {
		return id
	}
	return ""
}
