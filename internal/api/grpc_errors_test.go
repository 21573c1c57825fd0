package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/kb"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "bad document", err: fmt.Errorf("%w: unknown field", ErrInvalidRequest), code: codes.InvalidArgument},
		{name: "bad frequency", err: fmt.Errorf("%w: -1 MHz", core.ErrInvalidFrequency), code: codes.InvalidArgument},
		{name: "bad elevation", err: core.ErrInvalidElevation, code: codes.InvalidArgument},
		{name: "bad foF2", err: core.ErrInvalidFoF2, code: codes.InvalidArgument},
		{name: "bad step", err: core.ErrInvalidStep, code: codes.InvalidArgument},
		{name: "nil medium", err: core.ErrNilMedium, code: codes.InvalidArgument},
		{name: "bad scenario", err: kb.ErrInvalidScenario, code: codes.InvalidArgument},
		{name: "empty sweep", err: sweep.ErrEmptySweep, code: codes.InvalidArgument},
		{name: "not found", err: fmt.Errorf("%w: x", kb.ErrScenarioNotFound), code: codes.NotFound},
		{name: "already exists", err: kb.ErrScenarioExists, code: codes.AlreadyExists},
		{name: "canceled", err: context.Canceled, code: codes.Canceled},
		{name: "deadline", err: context.DeadlineExceeded, code: codes.DeadlineExceeded},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
