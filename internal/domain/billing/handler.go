package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "frontdesk", "cashier"))
	read.GET("/visits/:id/billing", h.Summary)

	api.POST("/visits/:id/payments", h.RecordPayment, auth.RequireRole("admin", "frontdesk", "cashier"))
}

func (h *Handler) Summary(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	summary, err := h.svc.Summary(c.Request().Context(), visitID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

type recordPaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"`
	Settled bool            `json:"settled"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	var req recordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}

	ctx := c.Request().Context()
	payment, err := h.svc.RecordPayment(ctx, visitID, req.Amount, req.Method, req.Settled,
		auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}
