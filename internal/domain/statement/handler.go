package statement

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the statement import endpoints.
type Handler struct {
	svc         *Service
	maxFileSize int64
	logger      *slog.Logger
}

// NewHandler creates a statement import handler.
func NewHandler(svc *Service, maxFileSize int64, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, maxFileSize: maxFileSize, logger: logger}
}

// RegisterRoutes mounts the import endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/imports/statement/preview", h.preview)
	rg.POST("/imports/statement/confirm", h.confirm)
	rg.GET("/imports", h.listBatches)
	rg.GET("/imports/:id", h.getBatch)
}

func (h *Handler) preview(c *gin.Context) {
	fileName, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.svc.Preview(c.Request.Context(), fileName, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type confirmRequest struct {
	FileName string   `json:"fileName" binding:"required"`
	Rows     []RawRow `json:"rows" binding:"required"`
}

func (h *Handler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Confirm(c.Request.Context(), req.FileName, req.Rows,
		Actor{ID: c.GetString("actor_id"), Role: c.GetString("actor_role")})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"billingImportId": res.BillingImportID,
		"createdCount":    res.CreatedCount,
		"skippedCount":    res.SkippedCount,
		"rowFailures":     res.RowFailures,
	})
}

func (h *Handler) listBatches(c *gin.Context) {
	batches, err := h.svc.ListBatches(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *Handler) getBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	b, err := h.svc.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": b})
}

// readUpload pulls the multipart file, enforcing the size ceiling before the
// body is read into memory.
func (h *Handler) readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return "", nil, false
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, err)
		return "", nil, false
	}
	return fh.Filename, data, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file has no rows"})
	case errors.Is(err, ErrTooManyRows):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many rows"})
	case errors.Is(err, ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	default:
		h.logger.Error("statement request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
