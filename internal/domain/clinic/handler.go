package clinic

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
	"github.com/occhealth/occhealth/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/clinics", h.ListClinics)
	api.GET("/clinics/:id", h.GetClinic)
	api.GET("/clinics/:id/services", h.ListOfferings)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	w := api.Group("", auth.RequireRole(auth.RoleClinicAdmin))
	w.POST("/clinics", h.CreateClinic)
	w.PUT("/clinics/:id", h.UpdateClinic)
	w.POST("/clinics/:id/admins", h.AddAdmin)
	w.DELETE("/clinics/:id/admins/:uid", h.RemoveAdmin)
	w.POST("/clinics/:id/doctors", h.AttachDoctor)
	w.DELETE("/clinics/:id/doctors/:did", h.DetachDoctor)
	w.POST("/clinics/:id/services", h.CreateOffering)
	w.POST("/doctors", h.CreateDoctor)
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreateClinic(c echo.Context) error {
	var cl Clinic
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateClinic(c.Request().Context(), &cl); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClinic(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cl, err := h.svc.GetClinic(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClinics(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pg.Page(c.Request().URL.Path, items, total))
}

func (h *Handler) UpdateClinic(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var upd ClinicUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.UpdateClinic(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cl)
}

type adminRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) AddAdmin(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req adminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.AddAdmin(c.Request().Context(), id, req.UserID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) RemoveAdmin(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveAdmin(c.Request().Context(), id, c.Param("uid")); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type doctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}

func (h *Handler) AttachDoctor(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req doctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.AttachDoctor(c.Request().Context(), id, req.DoctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) DetachDoctor(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	did, err := paramID(c, "did")
	if err != nil {
		return err
	}
	if err := h.svc.DetachDoctor(c.Request().Context(), id, did); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pg.Page(c.Request().URL.Path, items, total))
}

func (h *Handler) CreateOffering(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var o ServiceOffering
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ClinicID = id
	if err := h.svc.CreateOffering(c.Request().Context(), &o); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOfferings(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListOfferings(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}
