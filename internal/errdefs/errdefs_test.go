package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewfCarriesKind(t *testing.T) {
	err := Newf(ErrNotFound, "file %q does not exist", "a")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found kind: %v", err)
	}
	if !strings.Contains(err.Error(), `file "a" does not exist`) {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestNewEPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewE(ErrUnavailable, fmt.Errorf("upload: %w", cause))
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable kind: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("root cause lost: %v", err)
	}
}

func TestNewEIdempotent(t *testing.T) {
	if NewE(ErrUnavailable, nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	inner := Newf(ErrUnavailable, "boom")
	if NewE(ErrUnavailable, inner) != inner {
		t.Fatalf("already-kinded error must pass through")
	}
}
