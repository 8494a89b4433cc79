package registry

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler exposes the plot registry endpoints.
type Handler struct {
	repo        Repository
	importer    *Importer
	maxFileSize int64
	logger      *slog.Logger
}

// NewHandler creates a registry handler.
func NewHandler(repo Repository, importer *Importer, maxFileSize int64, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, importer: importer, maxFileSize: maxFileSize, logger: logger}
}

// RegisterRoutes mounts the registry endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/plots", h.list)
	rg.GET("/plots/:id", h.get)
	rg.POST("/plots", h.create)
	rg.PUT("/plots/:id", h.update)
	rg.POST("/plots/:id/archive", h.archive)
	rg.POST("/imports/plots/preview", h.importPreview)
	rg.POST("/imports/plots/confirm", h.importConfirm)
}

type plotRequest struct {
	PlotNumber    string `json:"plotNumber" binding:"required,plotnumber"`
	Street        string `json:"street"`
	OwnerFullName string `json:"ownerName"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Cadastral     string `json:"cadastral"`
	AreaSqM       string `json:"areaSqM"`
}

func (h *Handler) create(c *gin.Context) {
	var req plotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.plotFromRequest(c, req)
	if !ok {
		return
	}

	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plot": p})
}

func (h *Handler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plot id"})
		return
	}
	var req plotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.plotFromRequest(c, req)
	if !ok {
		return
	}
	p.ID = id

	if err := h.repo.Update(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plot": p})
}

func (h *Handler) plotFromRequest(c *gin.Context, req plotRequest) (*Plot, bool) {
	area := decimal.Zero
	if req.AreaSqM != "" {
		var err error
		if area, err = decimal.NewFromString(req.AreaSqM); err != nil || area.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid area"})
			return nil, false
		}
	}
	return &Plot{
		PlotNumber:    req.PlotNumber,
		Street:        req.Street,
		OwnerFullName: req.OwnerFullName,
		Phone:         req.Phone,
		Email:         req.Email,
		Cadastral:     req.Cadastral,
		AreaSqM:       area,
		Status:        StatusActive,
	}, true
}

func (h *Handler) list(c *gin.Context) {
	plots, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plots": plots})
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plot id"})
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plot": p})
}

func (h *Handler) archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plot id"})
		return
	}
	if err := h.repo.Archive(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) importPreview(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}
	preview, err := h.importer.Preview(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) importConfirm(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}
	res, err := h.importer.Confirm(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, false
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return data, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plot not found"})
	case errors.Is(err, ErrDuplicateNumber):
		c.JSON(http.StatusConflict, gin.H{"error": "plot number already registered"})
	default:
		h.logger.Error("registry request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
