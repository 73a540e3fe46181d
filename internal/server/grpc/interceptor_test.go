package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/siatlite/casedesk/internal/common"
	"github.com/siatlite/casedesk/internal/logging"
	pb "github.com/siatlite/casedesk/internal/proto"
	"github.com/siatlite/casedesk/internal/server/auth"
)

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("", nopLogger{}, &fakeIdentity{}, &fakeCases{}, secret)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(common.AccessTokenHeaderName, token))
}

func TestInterceptor_PublicMethodAllowsWithoutToken(t *testing.T) {
	s := newTestServer("secret")
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodLogin)}
	called := false

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_ProtectedMethods(t *testing.T) {
	s := newTestServer("secret")

	valid, err := auth.GenerateToken(7, []byte("secret"), time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken(7, []byte("other"), time.Minute)
	require.NoError(t, err)
	expired, err := auth.GenerateToken(7, []byte("secret"), -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		ctx  context.Context
		code codes.Code
	}{
		{"missing", context.Background(), codes.Unauthenticated},
		{"foreign signature", withToken(context.Background(), foreign), codes.Unauthenticated},
		{"expired", withToken(context.Background(), expired), codes.Unauthenticated},
		{"valid", withToken(context.Background(), valid), codes.OK},
	}
	for _, method := range []string{pb.MethodChangePassword, pb.MethodCreateAccident, pb.MethodGetAccident} {
		for _, tt := range tests {
			t.Run(method+"/"+tt.name, func(t *testing.T) {
				info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(method)}
				var gotID int64
				_, err := s.accessTokenInterceptor(tt.ctx, nil, info, func(ctx context.Context, req any) (any, error) {
					gotID, _ = userIDFromContext(ctx)
					return nil, nil
				})
				assert.Equal(t, tt.code, status.Code(err))
				if tt.code == codes.OK {
					assert.EqualValues(t, 7, gotID)
				}
			})
		}
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	s := newTestServer("secret")
	info := &grpc.UnaryServerInfo{FullMethod: pb.FullMethod(pb.MethodPing)}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.RequestIDHeaderName, "req-1"))
	var seen string
	_, err := s.requestIDInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		seen, _ = logging.RequestIDFrom(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", seen)

	_, err = s.requestIDInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		seen, _ = logging.RequestIDFrom(ctx)
		return nil, status.Error(codes.Internal, "boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Len(t, seen, 36)
}
