package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/access"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/envelope"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc    *Service
	scoper *access.Scoper
}

func NewHandler(svc *Service, scoper *access.Scoper) *Handler {
	return &Handler{svc: svc, scoper: scoper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Schedule reads: admin, staff, doctor (own)
	readSched := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RoleDoctor))
	readSched.GET("/doctor-schedule", h.ListWindows)

	// Schedule writes: admin, doctor (own)
	writeSched := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	writeSched.POST("/doctor-schedule", h.CreateWindow)
	writeSched.PUT("/doctor-schedule/:id", h.UpdateWindow)
	writeSched.PATCH("/doctor-schedule/:id", h.UpdateWindow)
	writeSched.DELETE("/doctor-schedule/:id", h.DeleteWindow)

	// Appointments are scoped per caller inside the service.
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PATCH("/appointments/:id", h.UpdateAppointment)

	book := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RolePatient))
	book.POST("/appointments", h.CreateAppointment)
}

func (h *Handler) scope(c echo.Context) (access.Scope, error) {
	p, err := auth.RequestPrincipal(c)
	if err != nil {
		return access.Scope{}, err
	}
	return h.scoper.Resolve(c.Request().Context(), p)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	return &id, nil
}

func queryString(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}

// -- Schedule Handlers --

func (h *Handler) ListWindows(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	doctorID, err := queryUUID(c, "doctor_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListWindows(c.Request().Context(), scope, doctorID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*AvailabilityWindow{}
	}
	return envelope.OK(c, items)
}

func (h *Handler) CreateWindow(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	var in WindowInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	w, err := h.svc.CreateWindow(c.Request().Context(), scope, in)
	if err != nil {
		return err
	}
	return envelope.Created(c, w)
}

func (h *Handler) UpdateWindow(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in WindowInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	w, err := h.svc.UpdateWindow(c.Request().Context(), scope, id, in)
	if err != nil {
		return err
	}
	return envelope.OK(c, w)
}

func (h *Handler) DeleteWindow(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteWindow(c.Request().Context(), scope, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	var in BookingInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), scope, in)
	if err != nil {
		return err
	}
	return envelope.Created(c, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), scope, id)
	if err != nil {
		return err
	}
	return envelope.OK(c, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	var f AppointmentFilter
	if f.DoctorID, err = queryUUID(c, "doctor_id"); err != nil {
		return err
	}
	if f.PatientID, err = queryUUID(c, "patient_id"); err != nil {
		return err
	}
	if v := c.QueryParam("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	f.From = queryString(c, "from")
	f.To = queryString(c, "to")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), scope, f, pg.Limit(), pg.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return envelope.List(c, items, pg.Meta(total))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var ch AppointmentChange
	if err := c.Bind(&ch); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), scope, id, ch)
	if err != nil {
		return err
	}
	return envelope.OK(c, a)
}
