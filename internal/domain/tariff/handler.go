package tariff

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler exposes the tariff admin endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a tariff handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the tariff endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tariffs", h.list)
	rg.GET("/tariffs/:id", h.get)
	rg.POST("/tariffs", h.create)
	rg.PUT("/tariffs/:id", h.update)
}

type createTariffRequest struct {
	Type            string `json:"type" binding:"required,oneof=membership electricity target"`
	Title           string `json:"title" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	AppliesTo       string `json:"appliesTo" binding:"omitempty,oneof=plot area"`
	ActiveFrom      string `json:"activeFrom" binding:"required"`
	ActiveTo        string `json:"activeTo"`
	Status          string `json:"status" binding:"omitempty,oneof=active inactive draft"`
	OverrideOverlap bool   `json:"overrideOverlap"`
}

func (h *Handler) create(c *gin.Context) {
	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), CreateInput{
		Type:            Type(req.Type),
		Title:           req.Title,
		Amount:          amount,
		AppliesTo:       AppliesTo(req.AppliesTo),
		ActiveFrom:      req.ActiveFrom,
		ActiveTo:        req.ActiveTo,
		Status:          Status(req.Status),
		OverrideOverlap: req.OverrideOverlap,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tariff": t})
}

type updateTariffRequest struct {
	Title           *string `json:"title"`
	Amount          *string `json:"amount"`
	AppliesTo       *string `json:"appliesTo" binding:"omitempty,oneof=plot area"`
	ActiveFrom      *string `json:"activeFrom"`
	ActiveTo        *string `json:"activeTo"`
	Status          *string `json:"status" binding:"omitempty,oneof=active inactive draft"`
	OverrideOverlap bool    `json:"overrideOverlap"`
}

func (h *Handler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tariff id"})
		return
	}
	var req updateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := UpdateInput{
		ID:              id,
		Title:           req.Title,
		ActiveFrom:      req.ActiveFrom,
		ActiveTo:        req.ActiveTo,
		OverrideOverlap: req.OverrideOverlap,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		in.Amount = &amount
	}
	if req.AppliesTo != nil {
		a := AppliesTo(*req.AppliesTo)
		in.AppliesTo = &a
	}
	if req.Status != nil {
		st := Status(*req.Status)
		in.Status = &st
	}

	t, err := h.svc.Update(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tariff": t})
}

func (h *Handler) list(c *gin.Context) {
	tariffs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tariffs": tariffs})
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tariff id"})
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tariff": t})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOverlap):
		c.JSON(http.StatusBadRequest, gin.H{"error": "overlap", "overlap": true})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "tariff not found"})
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("tariff request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func actorFrom(c *gin.Context) Actor {
	return Actor{ID: c.GetString("actor_id"), Role: c.GetString("actor_role")}
}
