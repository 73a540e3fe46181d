// Package client talks to the casedesk gRPC service on behalf of the CLI.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/siatlite/casedesk/internal/common"
	pb "github.com/siatlite/casedesk/internal/proto"
)

type GRPCClient struct {
	conn    *grpc.ClientConn
	api     *pb.CaseDeskClient
	timeout time.Duration

	mu          sync.Mutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *GRPCClient) setToken(t string) {
	c.mu.Lock()
	c.accessToken = t
	c.mu.Unlock()
}

// accessTokenInterceptor attaches the session token and drops it once the
// server reports it expired.
func (c *GRPCClient) accessTokenInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if tok := c.token(); tok != "" {
		ctx = withAccessToken(ctx, tok)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if st, ok := status.FromError(err); ok && st.Code() == codes.Unauthenticated &&
		st.Message() == common.ErrTokenExpired.Error() {
		c.setToken("")
	}
	return err
}

// NewGRPCClient prepares a connection to endpoint. No I/O happens until the
// first call.
func NewGRPCClient(endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{timeout: timeout}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.api = pb.NewCaseDeskClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.api.Call(ctx, method, pb.NewStruct(fields))
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable:
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", ErrUnavailable, context.DeadlineExceeded)
	}
	return pb.FromStatus(err)
}

func (c *GRPCClient) Register(ctx context.Context, r Registration) error {
	_, err := c.call(ctx, pb.MethodRegister, map[string]any{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"email":      r.Email,
		"password":   string(r.Password),
	})
	return err
}

func (c *GRPCClient) Confirm(ctx context.Context, token string) error {
	_, err := c.call(ctx, pb.MethodConfirm, map[string]any{"token": token})
	return err
}

func (c *GRPCClient) ResendConfirmation(ctx context.Context, email string) error {
	_, err := c.call(ctx, pb.MethodResendConfirmation, map[string]any{"email": email})
	return err
}

// Login authenticates and keeps the access token for later calls.
func (c *GRPCClient) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	out, err := c.call(ctx, pb.MethodLogin, map[string]any{"email": email, "password": string(password)})
	if err != nil {
		return nil, err
	}

	token := pb.String(out, "access_token")
	if token == "" {
		return nil, ErrBadResponse
	}
	expires, err := pb.Time(out, "expires_at")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	c.setToken(token)
	return &Session{
		UserID:    pb.Int64(out, "user_id"),
		Email:     pb.String(out, "email"),
		FullName:  pb.String(out, "full_name"),
		ExpiresAt: expires,
	}, nil
}

// Logout forgets the access token.
func (c *GRPCClient) Logout() {
	c.setToken("")
}

func (c *GRPCClient) LoggedIn() bool {
	return c.token() != ""
}

func (c *GRPCClient) RequestReset(ctx context.Context, email string) error {
	_, err := c.call(ctx, pb.MethodRequestPasswordReset, map[string]any{"email": email})
	return err
}

func (c *GRPCClient) ApplyReset(ctx context.Context, token string, newPassword []byte) error {
	_, err := c.call(ctx, pb.MethodApplyPasswordReset, map[string]any{"token": token, "new_password": string(newPassword)})
	return err
}

func (c *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	_, err := c.call(ctx, pb.MethodChangePassword, map[string]any{
		"old_password": string(oldPassword),
		"new_password": string(newPassword),
	})
	return err
}

func (c *GRPCClient) CreateAccident(ctx context.Context, a NewAccident) (*Accident, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	fields := map[string]any{"location": a.Location, "description": a.Description}
	if !a.OccurredAt.IsZero() {
		fields["occurred_at"] = pb.FormatTime(a.OccurredAt)
	}
	out, err := c.call(ctx, pb.MethodCreateAccident, fields)
	if err != nil {
		return nil, err
	}
	return accidentFromStruct(out)
}

func (c *GRPCClient) GetAccident(ctx context.Context, caseNumber string) (*Accident, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	out, err := c.call(ctx, pb.MethodGetAccident, map[string]any{"case_number": caseNumber})
	if err != nil {
		return nil, err
	}
	return accidentFromStruct(out)
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	out, err := c.call(ctx, pb.MethodPing, nil)
	if err != nil {
		return err
	}
	if pb.String(out, "status") != "OK" {
		return ErrBadResponse
	}
	return nil
}

func accidentFromStruct(s *structpb.Struct) (*Accident, error) {
	occurred, err := pb.Time(s, "occurred_at")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	created, err := pb.Time(s, "created_at")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return &Accident{
		ID:           pb.Int64(s, "id"),
		CaseNumber:   pb.String(s, "case_number"),
		OccurredAt:   occurred,
		Location:     pb.String(s, "location"),
		Description:  pb.String(s, "description"),
		RegisteredBy: pb.Int64(s, "registered_by"),
		CreatedAt:    created,
	}, nil
}
