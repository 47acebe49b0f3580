package visit

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "frontdesk"))
	read.GET("/visits", h.ListVisits)
	read.GET("/visits/:id", h.GetVisit)
	read.GET("/visits/:id/consultations", h.ListConsultations)

	// Visit lifecycle is restricted; consultations belong to clinicians.
	api.POST("/visits", h.OpenVisit, auth.RequireRole("admin", "frontdesk"))
	api.POST("/visits/:id/close", h.CloseVisit, auth.RequireRole("admin", "frontdesk"))
	api.POST("/visits/:id/consultations", h.StartConsultation, auth.RequireRole("physician"))
	api.POST("/consultations/:id/activate", h.ActivateConsultation, auth.RequireRole("physician"))
	api.POST("/consultations/:id/close", h.CloseConsultation, auth.RequireRole("physician"))
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	pg := pagination.FromContext(c)
	visits, total, err := h.svc.ListVisits(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListConsultations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	consultations, err := h.svc.ListConsultations(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, consultations)
}

type openVisitRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) OpenVisit(c echo.Context) error {
	var req openVisitRequest
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return apperr.JSON(c, apperr.Validation("patient_id is required"))
	}

	ctx := c.Request().Context()
	v, err := h.svc.OpenVisit(ctx, patientID, auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) CloseVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	ctx := c.Request().Context()
	v, err := h.svc.CloseVisit(ctx, id, auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type startConsultationRequest struct {
	ClinicianID string `json:"clinician_id"`
}

func (h *Handler) StartConsultation(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid visit id"))
	}
	var req startConsultationRequest
	if err := c.Bind(&req); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}

	ctx := c.Request().Context()
	clinicianID, err := uuid.Parse(req.ClinicianID)
	if err != nil {
		// Default to the acting clinician.
		clinicianID, err = uuid.Parse(auth.UserIDFromContext(ctx))
		if err != nil {
			return apperr.JSON(c, apperr.Validation("clinician_id is required"))
		}
	}

	consultation, err := h.svc.StartConsultation(ctx, visitID, clinicianID,
		auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, consultation)
}

func (h *Handler) ActivateConsultation(c echo.Context) error {
	return h.transition(c, h.svc.ActivateConsultation)
}

func (h *Handler) CloseConsultation(c echo.Context) error {
	return h.transition(c, h.svc.CloseConsultation)
}

func (h *Handler) transition(
	c echo.Context,
	fn func(ctx context.Context, id uuid.UUID, actorID string, actorRoles []string) (*Consultation, error),
) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("invalid consultation id"))
	}
	ctx := c.Request().Context()
	consultation, err := fn(ctx, id, auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, consultation)
}
