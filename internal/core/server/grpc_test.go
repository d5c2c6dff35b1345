package server

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/blockkeeper/internal/core/api"
	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/core/config"
)

// slowService blocks until its context ends.
type slowService struct{}

func (slowService) ValidateBlock(ctx context.Context, _ *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	<-ctx.Done()
	return nil, status.FromContextError(ctx.Err()).Err()
}

func (slowService) SanitizeBlock(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "not used")
}

func (slowService) ProcessDocument(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "not used")
}

func TestNewGRPCServer_NilDependencies(t *testing.T) {
	cfg := config.DefaultBlockAPIConfig()
	authenticator := auth.NewAuthenticator(nil, nil)

	_, err := NewGRPCServer(nil, slowService{}, authenticator, nil)
	assert.Error(t, err)
	_, err = NewGRPCServer(cfg, nil, authenticator, nil)
	assert.Error(t, err)
	_, err = NewGRPCServer(cfg, slowService{}, nil, nil)
	assert.Error(t, err)
}

func startBufconn(t *testing.T, cfg *config.BlockAPIConfig, logger *slog.Logger) (*GRPCServer, *grpc.ClientConn) {
	t.Helper()

	srv, err := NewGRPCServer(cfg, slowService{}, auth.NewAuthenticator(nil, nil), logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestGRPCServer_HealthAndShutdown(t *testing.T) {
	srv, conn := startBufconn(t, config.DefaultBlockAPIConfig(), nil)
	ctx := context.Background()
	health := grpc_health_v1.NewHealthClient(conn)

	resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))
}

func TestGRPCServer_AuthAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, conn := startBufconn(t, config.DefaultBlockAPIConfig(), logger)

	err := conn.Invoke(context.Background(), api.ValidateBlockMethod, wrapperspb.Bytes([]byte(`{}`)), new(emptypb.Empty))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	out := buf.String()
	assert.Contains(t, out, "method=/blockkeeper.v1.BlockAPI/ValidateBlock")
	assert.Contains(t, out, "code=Unauthenticated")
}

func TestTimeoutInterceptor(t *testing.T) {
	interceptor := timeoutInterceptor(20 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: api.ValidateBlockMethod}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return slowService{}.ValidateBlock(ctx, nil)
	})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))

	passthrough := timeoutInterceptor(0)
	_, err = passthrough(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestLoggingInterceptor_Levels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"ok", nil, "level=INFO"},
		{"client error", status.Error(codes.InvalidArgument, "bad"), "level=INFO"},
		{"server error", status.Error(codes.Unavailable, "db down"), "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			interceptor := loggingInterceptor(slog.New(slog.NewTextHandler(&buf, nil)))
			_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/m"}, func(context.Context, any) (any, error) {
				return nil, tt.err
			})
			assert.True(t, strings.Contains(buf.String(), tt.wantLevel), "log = %q", buf.String())
		})
	}
}
