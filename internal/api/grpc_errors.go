package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/kb"
)

// ToStatusError maps tracing and catalog errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrScenarioNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, kb.ErrScenarioExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, kb.ErrInvalidScenario),
		errors.Is(err, sweep.ErrEmptySweep),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidElevation),
		errors.Is(err, core.ErrInvalidFoF2),
		errors.Is(err, core.ErrInvalidDistance),
		errors.Is(err, core.ErrInvalidStep),
		errors.Is(err, core.ErrNilMedium):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
