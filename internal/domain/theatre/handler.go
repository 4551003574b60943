package theatre

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
	api.POST("/theatres", h.CreateTheatre)
	api.GET("/theatres", h.ListTheatres)
	api.GET("/theatres/:id", h.GetTheatre)
	api.PUT("/theatres/:id", h.UpdateTheatre)
	api.PATCH("/theatres/:id/status", h.SetTheatreStatus)
	api.DELETE("/theatres/:id", h.DeactivateTheatre)

	api.POST("/surgeries", h.ScheduleSurgery)
	api.GET("/surgeries", h.ListSurgeries)
	api.GET("/surgeries/worklist", h.Worklist)
	api.GET("/surgeries/stats", h.Stats)
	api.GET("/surgeries/:id", h.GetSurgery)
	api.PUT("/surgeries/:id", h.UpdateSurgery)
	api.PATCH("/surgeries/:id/status", h.UpdateSurgeryStatus)
	api.DELETE("/surgeries/:id", h.CancelSurgery)

	api.GET("/surgeries/:id/checklist", h.GetChecklist)
	api.PUT("/surgeries/:id/checklist", h.UpsertChecklist)
	api.GET("/surgeries/:id/anesthesia", h.GetAnesthesia)
	api.PUT("/surgeries/:id/anesthesia", h.UpsertAnesthesia)
}

// httpError maps domain sentinel errors onto HTTP statuses; anything
// unrecognized is a storage failure.
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

// -- Theatre handlers --

func (h *Handler) CreateTheatre(c echo.Context) error {
	var t Theatre
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTheatre(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTheatre(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTheatre(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTheatres(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchTheatres(c.Request().Context(), query.ExtractParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTheatre(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var t Theatre
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTheatre(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) SetTheatreStatus(c echo.Context) error {
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
	if err := h.svc.SetTheatreStatus(c.Request().Context(), id, body.Status); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "status": body.Status})
}

func (h *Handler) DeactivateTheatre(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateTheatre(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Surgery handlers --

func (h *Handler) ScheduleSurgery(c echo.Context) error {
	var sg Surgery
	if err := c.Bind(&sg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ScheduleSurgery(c.Request().Context(), &sg); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sg)
}

func (h *Handler) GetSurgery(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sg, err := h.svc.GetSurgery(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

func (h *Handler) ListSurgeries(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchSurgeries(c.Request().Context(), query.ExtractParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSurgery(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch Surgery
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sg, err := h.svc.UpdateSurgery(c.Request().Context(), id, &patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

func (h *Handler) UpdateSurgeryStatus(c echo.Context) error {
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
	sg, err := h.svc.UpdateSurgeryStatus(c.Request().Context(), id, body.Status, body.CancelReason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
}

func (h *Handler) CancelSurgery(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason *string `json:"reason,omitempty"`
	}
	_ = c.Bind(&body) // body is optional on cancel
	sg, err := h.svc.CancelSurgery(c.Request().Context(), id, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sg)
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
	var theatreID *uuid.UUID
	if t := c.QueryParam("theatre_id"); t != "" {
		parsed, err := uuid.Parse(t)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid theatre_id")
		}
		theatreID = &parsed
	}

	items, total, err := h.svc.Worklist(c.Request().Context(), date, theatreID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// -- Checklist handlers --

func (h *Handler) GetChecklist(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetChecklist(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpsertChecklist(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch ChecklistRecord
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.UpsertChecklist(c.Request().Context(), id, &patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// -- Anesthesia handlers --

func (h *Handler) GetAnesthesia(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetAnesthesia(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpsertAnesthesia(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch AnesthesiaRecord
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.UpsertAnesthesia(c.Request().Context(), id, &patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}
