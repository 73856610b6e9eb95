package attachment

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/platform/apperr"
	"github.com/clinic/backoffice/internal/platform/auth"
)

// FormField is the multipart field that carries attachments.
const FormField = "files"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	g.GET("/appointments/:id/files", h.ListForAppointment)
	g.POST("/appointments/:id/files", h.UploadForAppointment)
	g.GET("/patients/:id/files", h.ListForPatient)
}

func (h *Handler) ListForAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListForAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListForPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UploadForAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form expected")
	}
	uploads, closeAll, err := FromMultipart(form)
	defer closeAll()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(uploads) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files provided")
	}

	results := h.svc.UploadAll(c.Request().Context(), id, uploads)
	status := http.StatusCreated
	for _, r := range results {
		if r.Err != nil {
			status = http.StatusMultiStatus
			break
		}
	}
	return c.JSON(status, results)
}

// FromMultipart opens every file in the "files" field. The returned func
// closes whatever was opened and is safe to call when err != nil.
func FromMultipart(form *multipart.Form) ([]Upload, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}

	headers := form.File[FormField]
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, f)
		// an empty type is stored as NULL file_type; the blob store picks its own default
		uploads = append(uploads, Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
