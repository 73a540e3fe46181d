package proto

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/siatlite/casedesk/internal/common"
)

type errorMapping struct {
	err  error
	code codes.Code
}

// errorTable is checked in order; the first sentinel matched by errors.Is wins.
var errorTable = []errorMapping{
	{common.ErrDuplicateEmail, codes.AlreadyExists},
	{common.ErrInvalidCredentials, codes.Unauthenticated},
	{common.ErrAccountNotActivated, codes.FailedPrecondition},
	{common.ErrInvalidOrExpiredToken, codes.InvalidArgument},
	{common.ErrTooManyRequests, codes.ResourceExhausted},
	{common.ErrAllocationConflict, codes.Aborted},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrorUnauthorized, codes.Unauthenticated},
	{common.ErrorValidation, codes.InvalidArgument},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrorAlreadyExists, codes.AlreadyExists},
}

// ToStatus converts a service error into a gRPC status. Known sentinels keep
// their message; validation errors keep their detail. Anything else becomes
// codes.Internal without detail.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			msg := m.err.Error()
			if m.err == common.ErrorValidation {
				msg = err.Error()
			}
			return status.Error(m.code, msg)
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

// FromStatus maps a status produced by ToStatus back to its sentinel, wrapped
// so the server's message is kept. Unknown statuses are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, m := range errorTable {
		if st.Code() != m.code {
			continue
		}
		if st.Message() == m.err.Error() {
			return m.err
		}
		if m.err == common.ErrorValidation && strings.HasPrefix(st.Message(), m.err.Error()+":") {
			return &remoteError{sentinel: m.err, msg: st.Message()}
		}
	}
	if st.Code() == codes.Internal {
		return common.ErrorInternal
	}
	return err
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
