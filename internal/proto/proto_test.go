package proto

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/siatlite/casedesk/internal/common"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"duplicate", fmt.Errorf("register: %w", common.ErrDuplicateEmail), codes.AlreadyExists, "email already registered"},
		{"credentials", common.ErrInvalidCredentials, codes.Unauthenticated, "invalid credentials"},
		{"pending", common.ErrAccountNotActivated, codes.FailedPrecondition, "account not activated"},
		{"token", common.ErrInvalidOrExpiredToken, codes.InvalidArgument, "invalid or expired token"},
		{"throttled", common.ErrTooManyRequests, codes.ResourceExhausted, "too many requests"},
		{"conflict", common.ErrAllocationConflict, codes.Aborted, "case number allocation conflict"},
		{"not found", common.ErrorNotFound, codes.NotFound, "not found"},
		{"validation keeps detail", fmt.Errorf("%w: password too short", common.ErrorValidation), codes.InvalidArgument, "validation error: password too short"},
		{"canceled", context.Canceled, codes.Canceled, "context canceled"},
		{"internal hides detail", errors.New("db error: connection reset"), codes.Internal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(ToStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestFromStatus_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		common.ErrDuplicateEmail, common.ErrInvalidCredentials, common.ErrAccountNotActivated,
		common.ErrInvalidOrExpiredToken, common.ErrTooManyRequests, common.ErrAllocationConflict,
		common.ErrorNotFound,
	} {
		assert.ErrorIs(t, FromStatus(ToStatus(sentinel)), sentinel, sentinel.Error())
	}

	err := FromStatus(ToStatus(fmt.Errorf("%w: bad email", common.ErrorValidation)))
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, "validation error: bad email", err.Error())

	assert.ErrorIs(t, FromStatus(ToStatus(errors.New("boom"))), common.ErrorInternal)

	plain := errors.New("not a status")
	assert.Equal(t, plain, FromStatus(plain))
}

func TestFields(t *testing.T) {
	s := NewStruct(map[string]any{"email": "a@example.org", "id": 42, "at": "2025-03-14T09:00:00Z", "bad": "yesterday"})

	assert.Equal(t, "a@example.org", String(s, "email"))
	assert.Equal(t, "", String(s, "missing"))
	assert.Equal(t, "", String(nil, "email"))
	assert.EqualValues(t, 42, Int64(s, "id"))

	at, err := Time(s, "at")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)))

	zero, err := Time(s, "missing")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = Time(s, "bad")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

type pingServer struct {
	CaseDeskServer
}

func (pingServer) Ping(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return NewStruct(map[string]any{"status": "OK", "echo": String(in, "msg")}), nil
}

func TestServiceDesc_OverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterCaseDeskServer(srv, pingServer{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	out, err := NewCaseDeskClient(conn).Call(context.Background(), MethodPing, NewStruct(map[string]any{"msg": "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "OK", String(out, "status"))
	assert.Equal(t, "hi", String(out, "echo"))
	assert.Equal(t, "/casedesk.v1.CaseDesk/Ping", FullMethod(MethodPing))
}
