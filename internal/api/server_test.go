package api

import (
	"context"
	"net"
	"testing"
	"time"

	"shamshouse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newBufconnClient(t *testing.T, cfg *config.APIConfig, quotes Quoter) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, err := NewGRPCServerOn(lis, cfg, quotes, nopLogger(t))
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGRPCQuote(t *testing.T) {
	quotes := &fakeQuoter{}
	conn := newBufconnClient(t, testAPIConfig(), quotes)

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDKey, "grpc-1")
	var header metadata.MD
	out := new(structpb.Struct)
	err := conn.Invoke(ctx, quoteMethod, mustStruct(t, map[string]any{
		"roomId":     1,
		"checkIn":    "2026-07-01",
		"checkOut":   "2026-07-03",
		"bedCount":   2,
		"serviceIds": []any{5, 6},
	}), out, grpc.Header(&header))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.InDelta(t, 2, fields["nights"].GetNumberValue(), 0)
	assert.InDelta(t, 100, fields["total"].GetNumberValue(), 0)
	assert.Equal(t, "total", fields["formatted"].GetStringValue())
	assert.Equal(t, []int64{5, 6}, quotes.lastQuote.ServiceIDs)
	assert.Equal(t, []string{"grpc-1"}, header.Get(requestIDKey))
}

func TestGRPCQuote_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		err  error
		code codes.Code
	}{
		{"MissingDates", map[string]any{"roomId": 1}, nil, codes.InvalidArgument},
		{"WrongType", map[string]any{"roomId": "one", "checkIn": "2026-07-01", "checkOut": "2026-07-03"}, nil, codes.InvalidArgument},
		{"Reversed", map[string]any{"roomId": 1, "checkIn": "2026-07-03", "checkOut": "2026-07-01"}, nil, codes.InvalidArgument},
		{"UnknownRoom", map[string]any{"roomId": 404, "checkIn": "2026-07-01", "checkOut": "2026-07-03"}, nil, codes.NotFound},
		{"BackendDown", map[string]any{"roomId": 1, "checkIn": "2026-07-01", "checkOut": "2026-07-03"}, errBackendDown, codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newBufconnClient(t, testAPIConfig(), &fakeQuoter{err: tt.err})
			err := conn.Invoke(context.Background(), quoteMethod, mustStruct(t, tt.in), new(structpb.Struct))
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestGRPCAvailability(t *testing.T) {
	quotes := &fakeQuoter{}
	conn := newBufconnClient(t, testAPIConfig(), quotes)

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), availabilityMethod, mustStruct(t, map[string]any{
		"checkIn": "2026-07-01", "checkOut": "2026-07-03", "roomType": "DORMITORY",
	}), out)
	require.NoError(t, err)

	rooms := out.GetFields()["rooms"].GetListValue().GetValues()
	require.Len(t, rooms, 1)
	assert.Equal(t, "101", rooms[0].GetStructValue().GetFields()["roomNumber"].GetStringValue())

	err = conn.Invoke(context.Background(), availabilityMethod, mustStruct(t, map[string]any{
		"checkIn": "2026-07-01", "checkOut": "2026-07-03", "roomType": "PENTHOUSE",
	}), new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCAuth(t *testing.T) {
	conn := newBufconnClient(t, authConfig(permReadQuote), &fakeQuoter{})
	in := map[string]any{"checkIn": "2026-07-01", "checkOut": "2026-07-03"}

	t.Run("MissingHeaders", func(t *testing.T) {
		err := conn.Invoke(context.Background(), availabilityMethod, mustStruct(t, in), new(structpb.Struct))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidExtra", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "valid-key", "x-api-extra", "nope")
		err := conn.Invoke(ctx, availabilityMethod, mustStruct(t, in), new(structpb.Struct))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "valid-key", "x-api-extra", "valid-extra")
		err := conn.Invoke(ctx, availabilityMethod, mustStruct(t, in), new(structpb.Struct))
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Allowed", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "valid-key", "x-api-extra", "valid-extra")
		in := map[string]any{"roomId": 1, "checkIn": "2026-07-01", "checkOut": "2026-07-03"}
		err := conn.Invoke(ctx, quoteMethod, mustStruct(t, in), new(structpb.Struct))
		assert.NoError(t, err)
	})
}

func TestGRPCRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	conn := newBufconnClient(t, cfg, &fakeQuoter{})

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "k1")
	in := map[string]any{"checkIn": "2026-07-01", "checkOut": "2026-07-03"}
	require.NoError(t, conn.Invoke(ctx, availabilityMethod, mustStruct(t, in), new(structpb.Struct)))

	err := conn.Invoke(ctx, availabilityMethod, mustStruct(t, in), new(structpb.Struct))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// Another key has its own bucket.
	other := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "k2")
	assert.NoError(t, conn.Invoke(other, availabilityMethod, mustStruct(t, in), new(structpb.Struct)))
}

func TestNewGRPCServer_RandomPort(t *testing.T) {
	cfg := testAPIConfig()
	cfg.GRPC.Reflection = true
	s, err := NewGRPCServer(cfg, &fakeQuoter{}, nopLogger(t))
	require.NoError(t, err)
	assert.NotEmpty(t, s.Addr())

	go func() { _ = s.Serve() }()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Shutdown(ctx)
}

func TestBuildTLSConfig(t *testing.T) {
	_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = buildTLSConfig(config.APITLSConfig{Enabled: true, CertFile: "/nonexistent", KeyFile: "/nonexistent"})
	assert.Error(t, err)

	cfg := testAPIConfig()
	cfg.GRPC.TLS = config.APITLSConfig{Enabled: true}
	_, err = NewGRPCServerOn(bufconn.Listen(1024), cfg, &fakeQuoter{}, nopLogger(t))
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	off := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 20; i++ {
		assert.True(t, off.Allow("a"))
	}

	lim := newRateLimiter(config.APIRateLimitConfig{RPS: 0.001})
	for i := 0; i < defaultBurst; i++ {
		assert.True(t, lim.Allow("a"))
	}
	assert.False(t, lim.Allow("a"))
	assert.True(t, lim.Allow("b"))
}

func TestRequiredPermission(t *testing.T) {
	assert.Equal(t, permReadQuote, requiredPermission(quoteMethod))
	assert.Equal(t, permReadQuote, requiredPermission(quotePath))
	assert.Equal(t, permReadAvailability, requiredPermission(availabilityMethod))
	assert.Equal(t, permReadAvailability, requiredPermission(availabilityPath))
	assert.Empty(t, requiredPermission("/grpc.health.v1.Health/Check"))
}

func TestKeyringAllowsClientWithoutPermissions(t *testing.T) {
	k := newKeyring(config.APIAuthConfig{APIKeys: []config.APIClientKey{{Key: "k", Extra: "e"}}})
	assert.NoError(t, k.check("k", "e", permReadQuote))
	assert.ErrorIs(t, k.check("", "e", ""), errMissingKey)
	assert.Equal(t, "x-api-key", k.apiKeyHeader)
}
