package catalog

import (
	"net/http"

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
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "frontdesk", "pharmacist", "lab_tech", "radiologist"))
	read.GET("/catalog", h.List)
	read.GET("/catalog/:code", h.Get)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/catalog", h.Create)
	admin.PATCH("/catalog/:code", h.Update)
	admin.POST("/catalog/:code/deactivate", h.Deactivate)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.List(c.Request().Context(), c.QueryParam("department"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("code"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Create(c echo.Context) error {
	var e Entry
	if err := c.Bind(&e); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Update(c echo.Context) error {
	var patch EntryPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.JSON(c, apperr.Validation("malformed request body").WithCause(err))
	}
	updated, err := h.svc.Update(c.Request().Context(), c.Param("code"), &patch)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Deactivate(c echo.Context) error {
	if err := h.svc.Deactivate(c.Request().Context(), c.Param("code")); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
