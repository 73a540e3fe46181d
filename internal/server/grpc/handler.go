package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/siatlite/casedesk/internal/proto"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/services"
)

// fail converts err for the wire and logs unexpected errors with their detail,
// which the client never sees.
func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	st := pb.ToStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, op+" failed", "error", err)
	}
	return st
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	err := s.identity.Register(ctx, services.RegisterInput{
		FirstName: pb.String(req, "first_name"),
		LastName:  pb.String(req, "last_name"),
		Email:     pb.String(req, "email"),
		Password:  pb.String(req, "password"),
	})
	if err != nil {
		return nil, s.fail(ctx, "register", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) Confirm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.identity.Confirm(ctx, pb.String(req, "token")); err != nil {
		return nil, s.fail(ctx, "confirm", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) ResendConfirmation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.identity.ResendConfirmation(ctx, pb.String(req, "email")); err != nil {
		return nil, s.fail(ctx, "resend confirmation", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.identity.Login(ctx, pb.String(req, "email"), pb.String(req, "password"))
	if err != nil {
		return nil, s.fail(ctx, "login", err)
	}
	return pb.NewStruct(map[string]any{
		"access_token": sess.AccessToken,
		"expires_at":   pb.FormatTime(sess.ExpiresAt),
		"user_id":      sess.User.ID,
		"email":        sess.User.Email,
		"full_name":    sess.User.FullName(),
	}), nil
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.identity.RequestReset(ctx, pb.String(req, "email")); err != nil {
		return nil, s.fail(ctx, "request reset", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) ApplyPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.identity.ApplyReset(ctx, pb.String(req, "token"), pb.String(req, "new_password")); err != nil {
		return nil, s.fail(ctx, "apply reset", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	err := s.identity.ChangePassword(ctx, userID, pb.String(req, "old_password"), pb.String(req, "new_password"))
	if err != nil {
		return nil, s.fail(ctx, "change password", err)
	}
	return pb.Empty(), nil
}

func (s *GRPCServer) CreateAccident(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	occurredAt, err := pb.Time(req, "occurred_at")
	if err != nil {
		return nil, s.fail(ctx, "create accident", err)
	}

	acc, err := s.cases.CreateAccident(ctx, &models.Accident{
		OccurredAt:   occurredAt,
		Location:     pb.String(req, "location"),
		Description:  pb.String(req, "description"),
		RegisteredBy: &userID,
	})
	if err != nil {
		return nil, s.fail(ctx, "create accident", err)
	}
	return accidentToStruct(acc), nil
}

func (s *GRPCServer) GetAccident(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cn := pb.String(req, "case_number")
	if cn == "" {
		return nil, status.Error(codes.InvalidArgument, "case_number is required")
	}
	acc, err := s.cases.GetByCaseNumber(ctx, cn)
	if err != nil {
		return nil, s.fail(ctx, "get accident", err)
	}
	return accidentToStruct(acc), nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return pb.NewStruct(map[string]any{"status": "OK"}), nil
}

func accidentToStruct(a *models.Accident) *structpb.Struct {
	fields := map[string]any{
		"id":          a.ID,
		"case_number": a.CaseNumber,
		"occurred_at": pb.FormatTime(a.OccurredAt),
		"location":    a.Location,
		"description": a.Description,
		"created_at":  pb.FormatTime(a.CreatedAt),
	}
	if a.RegisteredBy != nil {
		fields["registered_by"] = *a.RegisteredBy
	}
	return pb.NewStruct(fields)
}

var _ pb.CaseDeskServer = (*GRPCServer)(nil)
