package dialysis

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/otms/otms/internal/domain/lifecycle"
	"github.com/otms/otms/internal/platform/query"
	"github.com/otms/otms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/dialysis/machines", h.CreateMachine)
	api.GET("/dialysis/machines", h.ListMachines)
	api.GET("/dialysis/machines/:id", h.GetMachine)
	api.PUT("/dialysis/machines/:id", h.UpdateMachine)
	api.PATCH("/dialysis/machines/:id/status", h.SetMachineStatus)
	api.DELETE("/dialysis/machines/:id", h.DeactivateMachine)

	api.POST("/dialysis/sessions", h.ScheduleSession)
	api.GET("/dialysis/sessions", h.ListSessions)
	api.GET("/dialysis/sessions/worklist", h.Worklist)
	api.GET("/dialysis/sessions/:id", h.GetSession)
	api.PATCH("/dialysis/sessions/:id/status", h.UpdateSessionStatus)
	api.DELETE("/dialysis/sessions/:id", h.CancelSession)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Machine handlers --

func (h *Handler) CreateMachine(c echo.Context) error {
	var m Machine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMachine(c.Request().Context(), &m); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMachine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMachine(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMachines(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchMachines(c.Request().Context(), query.ExtractParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMachine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var m Machine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMachine(c.Request().Context(), &m); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) SetMachineStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status lifecycle.ResourceStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetMachineStatus(c.Request().Context(), id, body.Status); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "status": body.Status})
}

func (h *Handler) DeactivateMachine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateMachine(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Session handlers --

func (h *Handler) ScheduleSession(c echo.Context) error {
	var sess Session
	if err := c.Bind(&sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ScheduleSession(c.Request().Context(), &sess); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchSessions(c.Request().Context(), query.ExtractParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSessionStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status       lifecycle.SessionStatus `json:"status"`
		CancelReason *string                 `json:"cancel_reason,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.UpdateSessionStatus(c.Request().Context(), id, body.Status, body.CancelReason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) CancelSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason *string `json:"reason,omitempty"`
	}
	_ = c.Bind(&body) // body is optional on cancel
	sess, err := h.svc.CancelSession(c.Request().Context(), id, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Worklist(c echo.Context) error {
	pg := pagination.FromContext(c)

	var date *time.Time
	if d := c.QueryParam("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		date = &parsed
	}
	var machineID *uuid.UUID
	if m := c.QueryParam("machine_id"); m != "" {
		parsed, err := uuid.Parse(m)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid machine_id")
		}
		machineID = &parsed
	}

	items, total, err := h.svc.Worklist(c.Request().Context(), date, machineID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
