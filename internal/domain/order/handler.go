package order

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole("admin", "physician", "nurse", "frontdesk", "pharmacist", "lab_tech", "radiologist")

	api.POST("/orders", h.Order, clinical)
	api.POST("/locks/evaluate", h.EvaluateLock, clinical)
	api.GET("/orders/:id", h.Get, clinical)
	api.GET("/visits/:id/orders", h.ListByVisit, clinical)
}

type orderRequest struct {
	VisitID        string                 `json:"visit_id" validate:"required,uuid4"`
	Code           string                 `json:"code" validate:"required"`
	ConsultationID string                 `json:"consultation_id" validate:"omitempty,uuid4"`
	Extra          map[string]interface{} `json:"extra"`
}

func (h *Handler) Order(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperr.JSON(c, validationError(err))
	}

	in := OrderInput{
		VisitID:  uuid.MustParse(req.VisitID),
		Code:     req.Code,
		Extra:    req.Extra,
		ClientIP: c.RealIP(),
	}
	if req.ConsultationID != "" {
		id := uuid.MustParse(req.ConsultationID)
		in.ConsultationID = &id
	}

	ctx := c.Request().Context()
	in.ActorID = auth.UserIDFromContext(ctx)
	in.ActorRoles = auth.RolesFromContext(ctx)

	result, err := h.svc.Order(ctx, in)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

type lockQueryRequest struct {
	Action         string `json:"action" validate:"required,oneof=ORDER_SERVICE CLOSE_VISIT"`
	VisitID        string `json:"visit_id" validate:"required,uuid4"`
	ConsultationID string `json:"consultation_id" validate:"omitempty,uuid4"`
	Code           string `json:"code"`
}

func (h *Handler) EvaluateLock(c echo.Context) error {
	var req lockQueryRequest
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperr.JSON(c, validationError(err))
	}

	q := LockQuery{
		Action:  ActionType(req.Action),
		VisitID: uuid.MustParse(req.VisitID),
		Code:    req.Code,
	}
	if req.ConsultationID != "" {
		id := uuid.MustParse(req.ConsultationID)
		q.ConsultationID = &id
	}

	ctx := c.Request().Context()
	q.Roles = auth.RolesFromContext(ctx)

	dec, err := h.svc.EvaluateLock(ctx, q)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, dec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid workflow record id"))
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	records, err := h.svc.ListByVisit(c.Request().Context(), visitID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// validationError turns validator output into the taxonomy, naming the
// first offending field.
func validationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		f := errs[0]
		return apperr.Validation("field %q failed validation rule %q", f.Field(), f.Tag())
	}
	return apperr.Validation("invalid request").WithCause(err)
}
