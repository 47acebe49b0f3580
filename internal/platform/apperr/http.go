package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// statusByKind maps error kinds to HTTP status codes. Precondition
// failures use 422 so front-ends can distinguish "fix your request"
// (400) from "clear this precondition first".
var statusByKind = map[Kind]int{
	KindValidation:   http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindPermission:   http.StatusForbidden,
	KindPrecondition: http.StatusUnprocessableEntity,
	KindImmutability: http.StatusConflict,
	KindConflict:     http.StatusConflict,
	KindInternal:     http.StatusInternalServerError,
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	if code, ok := statusByKind[KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

type response struct {
	Kind        Kind     `json:"kind"`
	Message     string   `json:"message"`
	Reasons     []string `json:"reasons,omitempty"`
	Remediation []string `json:"remediation,omitempty"`
}

// JSON writes err to the echo context in the uniform error shape.
// Internal errors are masked; everything else is returned verbatim so
// callers always learn which precondition failed and how to remedy it.
func JSON(c echo.Context, err error) error {
	ae, ok := As(err)
	if !ok || ae.Kind == KindInternal {
		return c.JSON(http.StatusInternalServerError, response{
			Kind:    KindInternal,
			Message: "internal server error",
		})
	}
	return c.JSON(Status(err), response{
		Kind:        ae.Kind,
		Message:     ae.Message,
		Reasons:     ae.Reasons,
		Remediation: ae.Remediation,
	})
}
