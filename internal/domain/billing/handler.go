package billing

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
	// Reads: admin, staff, patient (own)
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RolePatient))
	readGroup.GET("/billing", h.ListBills)
	readGroup.GET("/billing/:id", h.GetBill)

	// Writes: admin, staff
	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	writeGroup.POST("/billing", h.CreateBill)
	writeGroup.PUT("/billing/:id", h.ReplaceItems)
	writeGroup.PATCH("/billing/:id", h.ReplaceItems)
	writeGroup.DELETE("/billing/:id", h.DeleteBill)
	writeGroup.POST("/billing/:id/payments", h.AddPayment)
}

func (h *Handler) scope(c echo.Context) (access.Scope, error) {
	p, err := auth.RequestPrincipal(c)
	if err != nil {
		return access.Scope{}, err
	}
	return h.scoper.Resolve(c.Request().Context(), p)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id")
	}
	return id, nil
}

func (h *Handler) CreateBill(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	var in BillInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	view, err := h.svc.CreateBill(c.Request().Context(), scope, in)
	if err != nil {
		return err
	}
	return envelope.Created(c, view)
}

func (h *Handler) GetBill(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.svc.GetBill(c.Request().Context(), scope, id)
	if err != nil {
		return err
	}
	return envelope.OK(c, view)
}

func (h *Handler) ListBills(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	var f BillFilter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		f.From = &v
	}
	if v := c.QueryParam("to"); v != "" {
		f.To = &v
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBills(c.Request().Context(), scope, f, pg.Limit(), pg.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*BillListItem{}
	}
	return envelope.List(c, items, pg.Meta(total))
}

func (h *Handler) ReplaceItems(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in ItemsInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	view, err := h.svc.ReplaceItems(c.Request().Context(), scope, id, in)
	if err != nil {
		return err
	}
	return envelope.OK(c, view)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBill(c.Request().Context(), scope, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddPayment(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	receipt, err := h.svc.AddPayment(c.Request().Context(), scope, id, in)
	if err != nil {
		return err
	}
	return envelope.Created(c, receipt)
}
