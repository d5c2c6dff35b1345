package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/blockkeeper/internal/types"
)

// errStorage marks failures of the block store.
var errStorage = errors.New("storage error")

// toStatus maps engine and storage errors onto gRPC codes. Auth errors are
// mapped by the auth interceptor before a handler runs.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, types.ErrUnknownBlockType):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrMissingRequiredField),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrInvalidEnumValue),
		errors.Is(err, types.ErrInvalidType),
		errors.Is(err, types.ErrMalformedDocument),
		errors.Is(err, types.ErrPayloadTooDeep):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrConfig), errors.Is(err, types.ErrUnhandledType):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, errStorage):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
