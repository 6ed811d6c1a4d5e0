package booking

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
	company := api.Group("", auth.RequireRole(auth.RoleCompanyAdmin))
	company.POST("/bookings/preview", h.Preview)
	company.POST("/bookings", h.Book)
	company.GET("/companies/:id/appointments", h.ListByCompany)

	api.GET("/appointments/:id", h.GetAppointment)
	api.GET("/appointments/:id/employees", h.ListChildren)
	api.PUT("/appointments/:id/schedule", h.UpdateSchedule)
	api.PATCH("/employee-appointments/:id", h.UpdateChild)
	api.GET("/clinics/:id/capacity", h.CapacityReport)

	clinic := api.Group("", auth.RequireRole(auth.RoleClinicAdmin))
	clinic.GET("/clinics/:id/appointments", h.ListByClinicDay)
	clinic.PUT("/appointments/:id/status", h.UpdateStatus)
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryDay(c echo.Context) (Day, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return Day{}, apperr.ToHTTP(apperr.User(apperr.CodeMissingDate, "date query parameter is required"))
	}
	d, err := ParseDay(raw)
	if err != nil {
		return Day{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return d, nil
}

func (h *Handler) Preview(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Preview(c.Request().Context(), &req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Book(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Book(c.Request().Context(), &req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListChildren(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListChildren(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByCompany(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByCompany(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pg.Page(c.Request().URL.Path, items, total))
}

func (h *Handler) ListByClinicDay(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	day, err := queryDay(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByClinicDay(c.Request().Context(), id, day)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CapacityReport(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	day, err := queryDay(c)
	if err != nil {
		return err
	}
	report, err := h.svc.CapacityReport(c.Request().Context(), id, day)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var upd ScheduleUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UpdateSchedule(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateChild(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var upd ChildUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	child, err := h.svc.UpdateChild(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, child)
}
