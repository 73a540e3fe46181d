package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/siatlite/casedesk/internal/logging"
	pb "github.com/siatlite/casedesk/internal/proto"
	"github.com/siatlite/casedesk/internal/server/models"
	"github.com/siatlite/casedesk/internal/server/services"
)

// IdentityService is the subset of services.IdentityService used by handlers.
type IdentityService interface {
	Register(ctx context.Context, in services.RegisterInput) error
	Confirm(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*services.Session, error)
	RequestReset(ctx context.Context, email string) error
	ApplyReset(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

// CaseService is the subset of services.CaseAllocator used by handlers.
type CaseService interface {
	CreateAccident(ctx context.Context, acc *models.Accident) (*models.Accident, error)
	GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Accident, error)
}

type GRPCServer struct {
	address   string
	identity  IdentityService
	cases     CaseService
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
	now       func() time.Time
}

func NewGRPCServer(a string, l logging.Logger, identity IdentityService, cases CaseService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		identity:  identity,
		cases:     cases,
		jwtSecret: []byte(secretKey),
		health:    health.NewServer(),
		now:       time.Now,
	}
}

// newServer builds the grpc.Server with interceptors and services registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor))

	pb.RegisterCaseDeskServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run serves until ctx is canceled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
