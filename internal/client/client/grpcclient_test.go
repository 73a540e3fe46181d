package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/siatlite/casedesk/internal/common"
	pb "github.com/siatlite/casedesk/internal/proto"
)

// fakeServer records requests and replies from a script.
type fakeServer struct {
	pb.CaseDeskServer

	lastMethod string
	lastReq    *structpb.Struct
	lastToken  string
	reply      *structpb.Struct
	err        error
}

func (f *fakeServer) handle(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	f.lastMethod, f.lastReq, f.lastToken = method, req, ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
			f.lastToken = v[0]
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return pb.Empty(), nil
}

func (f *fakeServer) Register(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodRegister, r)
}
func (f *fakeServer) Confirm(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodConfirm, r)
}
func (f *fakeServer) ResendConfirmation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodResendConfirmation, r)
}
func (f *fakeServer) Login(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodLogin, r)
}
func (f *fakeServer) RequestPasswordReset(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodRequestPasswordReset, r)
}
func (f *fakeServer) ApplyPasswordReset(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodApplyPasswordReset, r)
}
func (f *fakeServer) ChangePassword(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodChangePassword, r)
}
func (f *fakeServer) CreateAccident(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodCreateAccident, r)
}
func (f *fakeServer) GetAccident(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(ctx, pb.MethodGetAccident, r)
}
func (f *fakeServer) Ping(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	f.lastMethod = pb.MethodPing
	return pb.NewStruct(map[string]any{"status": "OK"}), nil
}

func newTestClient(t *testing.T) (*GRPCClient, *fakeServer) {
	t.Helper()
	fake := &fakeServer{}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterCaseDeskServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", 2*time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, fake
}

func loginReply() *structpb.Struct {
	return pb.NewStruct(map[string]any{
		"access_token": "jwt-1",
		"expires_at":   "2025-03-14T09:15:00Z",
		"user_id":      3,
		"email":        "ana@example.org",
		"full_name":    "Ana Pop",
	})
}

func TestGRPCClient_Register(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.Register(context.Background(), Registration{FirstName: "Ana", Email: "ana@example.org", Password: []byte("s3cret-pass")})
	require.NoError(t, err)
	assert.Equal(t, pb.MethodRegister, fake.lastMethod)
	assert.Equal(t, "s3cret-pass", pb.String(fake.lastReq, "password"))
	assert.Equal(t, "Ana", pb.String(fake.lastReq, "first_name"))
}

func TestGRPCClient_MapsServerErrors(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	fake.err = pb.ToStatus(common.ErrDuplicateEmail)
	assert.ErrorIs(t, c.Register(ctx, Registration{}), common.ErrDuplicateEmail)

	fake.err = pb.ToStatus(common.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, c.Confirm(ctx, "t"), common.ErrInvalidOrExpiredToken)

	fake.err = status.Error(codes.Unavailable, "down")
	assert.ErrorIs(t, c.ResendConfirmation(ctx, "a@example.org"), ErrUnavailable)
}

func TestGRPCClient_LoginAttachesToken(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetAccident(ctx, "ACC-2025-001")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	fake.reply = loginReply()
	sess, err := c.Login(ctx, "ana@example.org", []byte("s3cret-pass"))
	require.NoError(t, err)
	assert.Equal(t, "Ana Pop", sess.FullName)
	assert.EqualValues(t, 3, sess.UserID)
	assert.True(t, sess.ExpiresAt.Equal(time.Date(2025, 3, 14, 9, 15, 0, 0, time.UTC)))
	assert.True(t, c.LoggedIn())

	fake.reply = nil
	require.NoError(t, c.ChangePassword(ctx, []byte("a"), []byte("b")))
	assert.Equal(t, "jwt-1", fake.lastToken)
	assert.Equal(t, "b", pb.String(fake.lastReq, "new_password"))

	c.Logout()
	assert.False(t, c.LoggedIn())
}

func TestGRPCClient_ExpiredTokenLogsOut(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	fake.reply = loginReply()
	_, err := c.Login(ctx, "ana@example.org", []byte("x"))
	require.NoError(t, err)

	fake.reply = nil
	fake.err = pb.ToStatus(common.ErrTokenExpired)
	_, err = c.GetAccident(ctx, "ACC-2025-001")
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.False(t, c.LoggedIn())
}

func TestGRPCClient_LoginBadResponse(t *testing.T) {
	c, fake := newTestClient(t)

	fake.reply = pb.Empty()
	_, err := c.Login(context.Background(), "ana@example.org", []byte("x"))
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.False(t, c.LoggedIn())
}

func TestGRPCClient_Accidents(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	fake.reply = loginReply()
	_, err := c.Login(ctx, "ana@example.org", []byte("x"))
	require.NoError(t, err)

	fake.reply = pb.NewStruct(map[string]any{
		"id": 9, "case_number": "ACC-2025-007", "occurred_at": "2025-05-02T08:30:00Z",
		"location": "DN1 km 23", "description": "rear-end", "registered_by": 3, "created_at": "2025-05-02T09:00:00Z",
	})
	acc, err := c.CreateAccident(ctx, NewAccident{OccurredAt: time.Date(2025, 5, 2, 10, 30, 0, 0, time.FixedZone("EET", 7200)), Location: "DN1 km 23"})
	require.NoError(t, err)
	assert.Equal(t, "2025-05-02T08:30:00Z", pb.String(fake.lastReq, "occurred_at"))
	assert.Equal(t, "ACC-2025-007", acc.CaseNumber)
	assert.EqualValues(t, 3, acc.RegisteredBy)

	_, err = c.CreateAccident(ctx, NewAccident{Location: "x"})
	require.NoError(t, err)
	_, present := fake.lastReq.GetFields()["occurred_at"]
	assert.False(t, present)

	acc, err = c.GetAccident(ctx, "ACC-2025-007")
	require.NoError(t, err)
	assert.Equal(t, "ACC-2025-007", pb.String(fake.lastReq, "case_number"))
	assert.Equal(t, "rear-end", acc.Description)

	fake.reply = pb.NewStruct(map[string]any{"occurred_at": "garbage"})
	_, err = c.GetAccident(ctx, "ACC-2025-007")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestGRPCClient_Ping(t *testing.T) {
	c, fake := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, pb.MethodPing, fake.lastMethod)
}
