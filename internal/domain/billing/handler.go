package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes period and debts endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a billing handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the billing endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/periods", h.listPeriods)
	rg.POST("/periods", h.createPeriod)
	rg.POST("/periods/:id/lock", h.lifecycle(h.svc.Lock))
	rg.POST("/periods/:id/close", h.lifecycle(h.svc.Close))
	rg.POST("/periods/:id/reopen", h.lifecycle(h.svc.Reopen))
	rg.POST("/periods/:id/accruals/generate", h.generateAccruals)
	rg.GET("/periods/:id/accruals", h.listAccruals)
}

// RegisterDebtRoutes mounts the debts report separately: viewing debts is a
// wider permission than managing periods.
func (h *Handler) RegisterDebtRoutes(rg *gin.RouterGroup) {
	rg.GET("/debts/export", h.exportDebts)
}

type createPeriodRequest struct {
	Year  int    `json:"year" binding:"required,min=2000,max=2100"`
	Month int    `json:"month" binding:"required,min=1,max=12"`
	Title string `json:"title"`
}

func (h *Handler) createPeriod(c *gin.Context) {
	var req createPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.svc.CreatePeriod(c.Request.Context(), req.Year, time.Month(req.Month), req.Title, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"period": p})
}

func (h *Handler) listPeriods(c *gin.Context) {
	periods, err := h.svc.ListPeriods(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

func (h *Handler) lifecycle(op func(ctx context.Context, id uuid.UUID, actor Actor) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period id"})
			return
		}
		if err := op(c.Request.Context(), id, actorFrom(c)); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (h *Handler) generateAccruals(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period id"})
		return
	}

	res, err := h.svc.GenerateAccruals(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": res.Created, "created": res.Created, "skipped": res.Skipped})
}

func (h *Handler) listAccruals(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period id"})
		return
	}

	accruals, err := h.svc.repo.ListAccrualsByPeriod(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accruals": accruals})
}

func (h *Handler) exportDebts(c *gin.Context) {
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		data, err := h.svc.DebtsXLSX(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="debts.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	case "csv":
		data, err := h.svc.DebtsCSV(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="debts.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown format"})
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPeriodNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "period not found"})
	case errors.Is(err, ErrDuplicatePeriod):
		c.JSON(http.StatusConflict, gin.H{"error": "period already exists"})
	case errors.Is(err, ErrPeriodClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "period is closed"})
	case errors.Is(err, ErrNotReopenable):
		c.JSON(http.StatusConflict, gin.H{"error": "period is not closed"})
	default:
		h.logger.Error("billing request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorFrom reads the operator identity placed on the context by the
// permissions middleware.
func actorFrom(c *gin.Context) Actor {
	return Actor{ID: c.GetString("actor_id"), Role: c.GetString("actor_role")}
}
