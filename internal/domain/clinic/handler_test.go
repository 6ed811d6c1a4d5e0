package clinic

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_CreateClinic(t *testing.T) {
	svc, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	body := `{"name":"Harbor","max_daily_appointments":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clinics", strings.NewReader(body)).WithContext(asUser("owner"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateClinic(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var cl Clinic
	json.Unmarshal(rec.Body.Bytes(), &cl)
	if cl.MaxDailyAppointments == nil || *cl.MaxDailyAppointments != 12 {
		t.Errorf("capacity not returned: %+v", cl)
	}
}

func TestHandler_UpdateClinic_Forbidden(t *testing.T) {
	svc, _ := newTestService()
	c := seedClinic(t, svc, "owner")
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Mine now"}`)).WithContext(asUser("intruder"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues(c.ID.String())

	err := h.UpdateClinic(ctx)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestHandler_AddAdmin(t *testing.T) {
	svc, _ := newTestService()
	c := seedClinic(t, svc, "owner")
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"nurse-7"}`)).WithContext(asUser("owner"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues(c.ID.String())

	if err := h.AddAdmin(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var cl Clinic
	json.Unmarshal(rec.Body.Bytes(), &cl)
	if len(cl.Admins) != 1 || cl.Admins[0] != "nurse-7" {
		t.Errorf("unexpected admins %v", cl.Admins)
	}
}

func TestHandler_ListClinics(t *testing.T) {
	svc, _ := newTestService()
	seedClinic(t, svc, "owner")
	seedClinic(t, svc, "other")
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics", nil).WithContext(asUser("reader"))
	rec := httptest.NewRecorder()
	if err := h.ListClinics(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 {
		t.Errorf("clinics are a shared catalogue, expected 2, got %d", body.Total)
	}
}

func TestHandler_GetDoctor_InvalidID(t *testing.T) {
	svc, _ := newTestService()
	h, e := NewHandler(svc), echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(asUser("reader"))
	ctx := e.NewContext(req, httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues("nope")
	var he *echo.HTTPError
	if err := h.GetDoctor(ctx); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
