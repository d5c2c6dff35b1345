package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/blockkeeper/internal/core/db"
	"github.com/solatis/blockkeeper/internal/types"
)

const (
	oldSecretID = "0190a0b0c0d0e0f00112233445566778"
	newSecretID = "0190a0b0c0d0e0f00112233445566779"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = db.MigrateUp(ctx, database)
	require.NoError(t, err)

	queries, err := db.LoadQueries(database)
	require.NoError(t, err)

	secrets := map[string][]byte{
		oldSecretID: []byte(strings.Repeat("o", 32)),
		newSecretID: []byte(strings.Repeat("n", 32)),
	}
	return NewAuthenticator(secrets, queries)
}

func TestParseAPIKey(t *testing.T) {
	valid := FormatAPIKey(newSecretID, strings.Repeat("ab", 32))

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"wrong prefix", strings.Replace(valid, "bk-", "tk-", 1), true},
		{"wrong version", strings.Replace(valid, "-v1-", "-v2-", 1), true},
		{"short secret id", "bk-v1-0190-" + strings.Repeat("ab", 32), true},
		{"short random", "bk-v1-" + newSecretID + "-abcd", true},
		{"uppercase hex", "bk-v1-" + strings.ToUpper(newSecretID) + "-" + strings.Repeat("ab", 32), true},
		{"extra part", valid + "-x", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secretID, random, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, newSecretID, secretID)
			assert.Len(t, random, 64)
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey(newSecretID)
	require.NoError(t, err)
	b, err := GenerateAPIKey(newSecretID)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, _, err = ParseAPIKey(a)
	assert.NoError(t, err)

	_, err = GenerateAPIKey("nothex")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)
}

func TestVerifyHMAC(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	h := ComputeHMAC(secret, "bk-v1-key")
	assert.True(t, VerifyHMAC(h, ComputeHMAC(secret, "bk-v1-key")))
	assert.False(t, VerifyHMAC(h, ComputeHMAC(secret, "bk-v1-other")))
}

func TestAuthenticator_IssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)

	issued, err := a.IssueKey(ctx, "ws-1", "ci")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.Key, "bk-v1-"+newSecretID+"-"), "key bound to newest secret: %s", issued.Key)

	ws, err := a.Authenticate(ctx, issued.Key)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceID("ws-1"), ws)

	// Same format, different random part.
	forged := FormatAPIKey(newSecretID, strings.Repeat("0", 64))
	_, err = a.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidKey)

	unknown := FormatAPIKey(strings.Repeat("f", 32), strings.Repeat("0", 64))
	_, err = a.Authenticate(ctx, unknown)
	assert.ErrorIs(t, err, ErrUnknownKey)

	require.NoError(t, a.RevokeKey(ctx, issued.ID))
	_, err = a.Authenticate(ctx, issued.Key)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

func TestAuthenticator_IssueKeyErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestAuthenticator(t).IssueKey(ctx, "", "x")
	assert.Error(t, err)

	_, err = NewAuthenticator(nil, nil).IssueKey(ctx, "ws", "x")
	assert.ErrorIs(t, err, ErrNoSecrets)
}

func TestShouldUpdateLastUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastUsed string
		valid    bool
		want     bool
	}{
		{"never used", "", false, true},
		{"recent", now.Add(-10 * time.Second).Format(time.RFC3339Nano), true, false},
		{"stale", now.Add(-2 * time.Minute).Format(time.RFC3339Nano), true, true},
		{"unparseable", "yesterday", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldUpdateLastUsed(sql.NullString{String: tt.lastUsed, Valid: tt.valid}, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnaryInterceptor(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)
	issued, err := a.IssueKey(ctx, "ws-9", "svc")
	require.NoError(t, err)

	interceptor := a.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/blockkeeper.v1.BlockAPI/ValidateBlock"}

	var seen types.WorkspaceID
	handler := func(ctx context.Context, req any) (any, error) {
		seen = WorkspaceFromContext(ctx)
		return "ok", nil
	}

	tests := []struct {
		name     string
		ctx      context.Context
		wantCode codes.Code
	}{
		{"no metadata", ctx, codes.Unauthenticated},
		{"no key", metadata.NewIncomingContext(ctx, metadata.Pairs("other", "x")), codes.Unauthenticated},
		{"malformed key", metadata.NewIncomingContext(ctx, metadata.Pairs(APIKeyHeader, "nope")), codes.Unauthenticated},
		{"valid key", metadata.NewIncomingContext(ctx, metadata.Pairs(APIKeyHeader, issued.Key)), codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			_, err := interceptor(tt.ctx, nil, info, handler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, types.WorkspaceID("ws-9"), seen)
			}
		})
	}

	t.Run("health bypasses auth", func(t *testing.T) {
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
		assert.NoError(t, err)
	})

	t.Run("revoked key", func(t *testing.T) {
		require.NoError(t, a.RevokeKey(ctx, issued.ID))
		_, err := interceptor(metadata.NewIncomingContext(ctx, metadata.Pairs(APIKeyHeader, issued.Key)), nil, info, handler)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}
