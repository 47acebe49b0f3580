package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Precondition("payment not cleared").WithReasons("PAYMENT_REQUIRED")
	if KindOf(err) != KindPrecondition {
		t.Errorf("expected precondition kind, got %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("foreign errors should map to internal")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := Conflict("duplicate line item")
	wrapped := fmt.Errorf("order failed: %w", inner)
	if !IsKind(wrapped, KindConflict) {
		t.Error("expected conflict kind through wrapping")
	}
}

func TestWithReasonsAndRemediation(t *testing.T) {
	err := Precondition("blocked").
		WithReasons("PAYMENT_REQUIRED", "CONSULTATION_REQUIRED").
		WithRemediation("CLEAR_PAYMENT")

	if len(err.Reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %d", len(err.Reasons))
	}
	if err.Reasons[0] != "PAYMENT_REQUIRED" {
		t.Errorf("unexpected first reason: %s", err.Reasons[0])
	}
	if len(err.Remediation) != 1 || err.Remediation[0] != "CLEAR_PAYMENT" {
		t.Errorf("unexpected remediation: %v", err.Remediation)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("storage unavailable").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Permission("denied"), http.StatusForbidden},
		{Precondition("blocked"), http.StatusUnprocessableEntity},
		{Immutability("closed"), http.StatusConflict},
		{Conflict("duplicate"), http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Errorf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
