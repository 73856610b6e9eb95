package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/platform/apperr"
	"github.com/clinic/backoffice/internal/platform/auth"
)

type Handler struct {
	agg *Aggregator
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	g.GET("", h.View)
	g.POST("/refresh", h.Refresh)
	g.GET("/export.csv", h.Export)
}

func (h *Handler) View(c echo.Context) error {
	var f Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.agg.View(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTPError(apperr.FromStore("build dashboard", "appointment", "", err))
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Refresh(c echo.Context) error {
	if _, err := h.agg.Refresh(c.Request().Context()); err != nil {
		return apperr.HTTPError(apperr.FromStore("refresh dashboard", "appointment", "", err))
	}
	v, err := h.agg.View(c.Request().Context(), Filter{})
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// Export streams the filtered rows as CSV.
func (h *Handler) Export(c echo.Context) error {
	var f Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.agg.View(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTPError(apperr.FromStore("export dashboard", "appointment", "", err))
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="appointments.csv"`)
	res.WriteHeader(http.StatusOK)
	return WriteCSV(res, v.Rows)
}
