package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestCopiesMatchSentinelWithErrorsIs(t *testing.T) {
	derived := ErrValueNotText.WithInternal(stdErrors.New("bad utf-8"))
	wrapped := fmt.Errorf("get str %q: %w", "k", derived)

	if !stdErrors.Is(wrapped, ErrValueNotText) {
		t.Fatal("expected wrapped copy to match ErrValueNotText")
	}
	if stdErrors.Is(wrapped, ErrValueNotFound) {
		t.Fatal("expected wrapped copy not to match ErrValueNotFound")
	}
}

func TestWithInternalKeepsUnderlyingError(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := ErrStoreUnavailable.WithInternal(cause)

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the internal error")
	}
}

func TestWithMessage(t *testing.T) {
	err := ErrValueNotFound.WithMessage("no value for key abc")
	if err.Message != "no value for key abc" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if ErrValueNotFound.Message == err.Message {
		t.Fatal("expected sentinel message to stay unchanged")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
