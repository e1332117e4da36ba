package identity

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/envelope"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/me", h.MyDoctorProfile, auth.RequireRole(auth.RoleDoctor))
	api.GET("/patients/me", h.MyPatientProfile, auth.RequireRole(auth.RolePatient))

	// Doctors are listed to every role so patients can pick one to book.
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/doctors", h.CreateDoctor)
	admin.PATCH("/doctors/:id/status", h.SetDoctorStatus)

	desk := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	desk.GET("/patients", h.ListPatients)
	desk.GET("/patients/:id", h.GetPatient)
	desk.POST("/patients", h.CreatePatient)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) MyDoctorProfile(c echo.Context) error {
	p, err := auth.RequestPrincipal(c)
	if err != nil {
		return err
	}
	d, err := h.svc.DoctorByUserID(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) MyPatientProfile(c echo.Context) error {
	p, err := auth.RequestPrincipal(c)
	if err != nil {
		return err
	}
	pt, err := h.svc.PatientByUserID(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return envelope.OK(c, pt)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	p, err := auth.RequestPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	// only desk roles see inactive doctors
	activeOnly := !p.Role.Privileged() || c.QueryParam("status") == string(DoctorActive)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), activeOnly, pg.Limit(), pg.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Doctor{}
	}
	return envelope.List(c, items, pg.Meta(total))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.DoctorByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return err
	}
	return envelope.Created(c, d)
}

func (h *Handler) SetDoctorStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Status DoctorStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	d, err := h.svc.SetDoctorStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit(), pg.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Patient{}
	}
	return envelope.List(c, items, pg.Meta(total))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.PatientByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return err
	}
	return envelope.Created(c, p)
}
