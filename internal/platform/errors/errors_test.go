package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeGMSeatTaken, "gm seat is taken")
	wrapped := fmt.Errorf("claim gm: %w", Wrap(CodeGMSeatTaken, "gm seat is taken", errors.New("row exists")))

	if !errors.Is(wrapped, base) {
		t.Fatal("expected wrapped error to match sentinel by code")
	}
	if errors.Is(wrapped, New(CodeCharacterTaken, "seat taken")) {
		t.Fatal("expected mismatch for different code")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeUnknown, "put character", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via Unwrap")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeNotFound, codes.NotFound},
		{CodeGMSeatTaken, codes.FailedPrecondition},
		{CodeSceneIsActive, codes.FailedPrecondition},
		{CodePyramidLevelOverflow, codes.InvalidArgument},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Errorf("GRPCCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestToGRPCStatusCarriesReason(t *testing.T) {
	err := WithMetadata(CodePyramidLevelOverflow, "level 4 exceeds capacity", map[string]string{"level": "4"})
	st, ok := status.FromError(err.ToGRPCStatus())
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", st.Code())
	}
	if len(st.Details()) == 0 {
		t.Fatal("expected error details")
	}
}
