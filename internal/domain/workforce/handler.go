package workforce

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
	g := api.Group("", auth.RequireRole(auth.RoleCompanyAdmin))

	g.POST("/companies", h.CreateCompany)
	g.GET("/companies", h.ListCompanies)
	g.GET("/companies/:id", h.GetCompany)
	g.PUT("/companies/:id", h.UpdateCompany)
	g.GET("/companies/:id/employees", h.ListEmployees)
	g.GET("/companies/:id/departments", h.ListDepartments)
	g.GET("/companies/:id/sites", h.ListSites)

	g.POST("/employees", h.CreateEmployee)
	g.GET("/employees/:id", h.GetEmployee)
	g.PATCH("/employees/:id", h.PatchEmployee)
	g.PUT("/employees/:id/company", h.ReassignCompany)
	g.DELETE("/employees/:id", h.DeleteEmployee)

	g.POST("/departments", h.CreateDepartment)
	g.GET("/departments/:id", h.GetDepartment)
	g.DELETE("/departments/:id", h.DeleteDepartment)
	g.GET("/departments/:id/employees", h.ListDepartmentMembers)
	g.POST("/departments/:id/employees", h.AddToDepartment)
	g.DELETE("/departments/:id/employees/:eid", h.RemoveFromDepartment)

	g.POST("/sites", h.CreateSite)
	g.GET("/sites/:id", h.GetSite)
	g.DELETE("/sites/:id", h.DeleteSite)
	g.GET("/sites/:id/employees", h.ListSiteMembers)
	g.POST("/sites/:id/employees", h.AddToSite)
	g.DELETE("/sites/:id/employees/:eid", h.RemoveFromSite)

	g.POST("/reconcile", h.Reconcile)
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- companies --

func (h *Handler) CreateCompany(c echo.Context) error {
	var co Company
	if err := c.Bind(&co); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCompany(c.Request().Context(), &co); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, co)
}

func (h *Handler) GetCompany(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	co, err := h.svc.GetCompany(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, co)
}

func (h *Handler) UpdateCompany(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var upd CompanyUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	co, err := h.svc.UpdateCompany(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, co)
}

func (h *Handler) ListCompanies(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCompanies(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pg.Page(c.Request().URL.Path, items, total))
}

// -- employees --

func (h *Handler) CreateEmployee(c echo.Context) error {
	var e Employee
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateEmployee(c.Request().Context(), &e); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEmployee(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.GetEmployee(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEmployees(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEmployees(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pg.Page(c.Request().URL.Path, items, total))
}

func (h *Handler) PatchEmployee(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var patch EmployeePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.PatchEmployee(c.Request().Context(), id, &patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

type reassignRequest struct {
	CompanyID *uuid.UUID `json:"company_id"`
}

func (h *Handler) ReassignCompany(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.ReassignCompany(c.Request().Context(), id, req.CompanyID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEmployee(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEmployee(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- departments --

func (h *Handler) CreateDepartment(c echo.Context) error {
	var d Department
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDepartment(c.Request().Context(), &d); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDepartment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListDepartments(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDepartment(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDepartmentMembers(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListDepartmentMembers(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddToDepartment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var a DepartmentEmployee
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.DepartmentID = id
	if err := h.svc.AddToDepartment(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) RemoveFromDepartment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	eid, err := paramID(c, "eid")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveFromDepartment(c.Request().Context(), id, eid); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- sites --

func (h *Handler) CreateSite(c echo.Context) error {
	var st Site
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSite(c.Request().Context(), &st); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetSite(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	st, err := h.svc.GetSite(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ListSites(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListSites(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteSite(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSite(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListSiteMembers(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListSiteMembers(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddToSite(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var a SiteEmployee
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.SiteID = id
	if err := h.svc.AddToSite(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) RemoveFromSite(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	eid, err := paramID(c, "eid")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveFromSite(c.Request().Context(), id, eid); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Reconcile(c echo.Context) error {
	report, err := h.svc.Reconcile(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}
