package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/services"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MeetingConfirmationHandler struct {
	confirmationService *services.ConfirmationService
	diagnosticService   *services.DiagnosticService
	exportService       *services.ExportService
}

func NewMeetingConfirmationHandler(confirmationService *services.ConfirmationService,
	diagnosticService *services.DiagnosticService, exportService *services.ExportService) *MeetingConfirmationHandler {
	return &MeetingConfirmationHandler{
		confirmationService: confirmationService,
		diagnosticService:   diagnosticService,
		exportService:       exportService,
	}
}

// RegisterRoutes mounts the confirmation endpoints on group
func (h *MeetingConfirmationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/items", h.ListItems)
	group.POST("/generate", h.Generate)
	group.POST("/items/copy-bulk", h.BulkCopy)
	group.POST("/items/:id/copy", h.MarkCopied)
	group.POST("/items/:id/snooze", h.Snooze)
	group.POST("/items/:id/add-phone", h.AddPhone)
	group.POST("/items/:id/reset", h.Reset)
	group.GET("/debug", h.Debug)
	group.GET("/runs", h.ListRuns)
	group.GET("/export", h.Export)
}

type addPhoneRequest struct {
	Phone string `json:"phone"`
}

type bulkCopyRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// ListItems returns the board grouped by bucket
func (h *MeetingConfirmationHandler) ListItems(c *gin.Context) {
	buckets, err := h.confirmationService.ListBuckets()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// Generate runs the confirmation pipeline synchronously
func (h *MeetingConfirmationHandler) Generate(c *gin.Context) {
	summary, err := h.confirmationService.Generate(c.Request.Context(), models.RunTriggerManual)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// MarkCopied records that the message of an item was copied
func (h *MeetingConfirmationHandler) MarkCopied(c *gin.Context) {
	item, err := h.confirmationService.MarkCopied(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Snooze hides a pending item for the configured number of days
func (h *MeetingConfirmationHandler) Snooze(c *gin.Context) {
	item, until, err := h.confirmationService.Snooze(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snooze_until": until.Format("2006-01-02"),
		"item":         item,
	})
}

// AddPhone stores a phone for the item's contact
func (h *MeetingConfirmationHandler) AddPhone(c *gin.Context) {
	var req addPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	item, err := h.confirmationService.AddPhone(c.Param("id"), req.Phone)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Reset returns an item to pending
func (h *MeetingConfirmationHandler) Reset(c *gin.Context) {
	item, err := h.confirmationService.Reset(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// BulkCopy marks several items as copied and reports each outcome
func (h *MeetingConfirmationHandler) BulkCopy(c *gin.Context) {
	var req bulkCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ItemIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_ids is required"})
		return
	}

	c.JSON(http.StatusOK, h.confirmationService.BulkCopy(req.ItemIDs))
}

// Debug explains the pipeline decisions for one email
func (h *MeetingConfirmationHandler) Debug(c *gin.Context) {
	report, err := h.diagnosticService.Debug(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListRuns returns the latest generation runs
func (h *MeetingConfirmationHandler) ListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = parsed
	}

	runs, err := h.confirmationService.ListRuns(limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Export downloads the board as an Excel workbook
func (h *MeetingConfirmationHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.exportService.WriteWorkbook(&buf); err != nil {
		h.respondError(c, err)
		return
	}

	fileName := h.exportService.ExportFileName(h.confirmationService.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *MeetingConfirmationHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidPhone):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnknownItem):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrInvalidTransition):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrSourceUnavailable):
		status, message = http.StatusServiceUnavailable, err.Error()
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Confirmation request failed")
	}

	c.JSON(status, gin.H{"error": message})
}
