package audit

import (
	"errors"
	"testing"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

func TestOutcomeForError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{apperr.Validation("bad input"), OutcomeBlocked},
		{apperr.NotFound("missing"), OutcomeBlocked},
		{apperr.Permission("denied"), OutcomeBlocked},
		{apperr.Precondition("payment outstanding"), OutcomeBlocked},
		{apperr.Immutability("closed"), OutcomeBlocked},
		{apperr.Conflict("duplicate"), OutcomeBlocked},
		{apperr.Internal("db down"), OutcomeError},
		{errors.New("plain failure"), OutcomeError},
	}
	for _, tc := range cases {
		if got := OutcomeForError(tc.err); got != tc.want {
			t.Errorf("OutcomeForError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
