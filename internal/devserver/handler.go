package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Store          *Store
	MaxUploadBytes int64
}

// UploadHandler serves the upload, status and results endpoints
type UploadHandler struct {
	logger         *slog.Logger
	store          *Store
	maxUploadBytes int64
}

// NewUploadHandler creates a new UploadHandler instance
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	return &UploadHandler{
		logger:         deps.Logger,
		store:          deps.Store,
		maxUploadBytes: maxBytes,
	}
}

// UploadCSV handles POST /upload/
func (h *UploadHandler) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("csvFile")
	if err != nil {
		h.logger.Warn("Upload without file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No file was uploaded.",
		})
		return
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File is not CSV format.",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file.",
		})
		return
	}
	defer f.Close()

	// A malformed timesheet is still accepted; it fails during processing
	var failure string
	rows, err := InspectTimesheet(f)
	if err != nil {
		failure = err.Error()
	}

	upload := h.store.CreateUpload(fileHeader.Filename, rows, failure)

	h.logger.Info("File uploaded",
		slog.String("file_id", upload.FileID),
		slog.String("file_name", upload.FileName),
		slog.Int("rows", rows),
		slog.Bool("will_fail", failure != ""),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"file_id": upload.FileID,
	})
}

// UploadStatus handles GET /status/:file_id/
func (h *UploadHandler) UploadStatus(c *gin.Context) {
	fileID := c.Param("file_id")

	state, failure, err := h.store.RecordPoll(fileID)
	if errors.Is(err, ErrUploadNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"status":  domain.StatusError,
			"message": "File not found.",
		})
		return
	}

	switch state {
	case domain.JobStateProcessed:
		c.JSON(http.StatusOK, gin.H{"status": domain.StatusProcessed})
	case domain.JobStateFailed:
		c.JSON(http.StatusOK, gin.H{
			"status":  domain.StatusFailed,
			"message": failure,
		})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "processing"})
	}
}

// ViewInvoices handles GET /invoices/:file_id
func (h *UploadHandler) ViewInvoices(c *gin.Context) {
	fileID := c.Param("file_id")

	upload, err := h.store.GetUpload(fileID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found."})
		return
	}

	state, err := h.store.State(fileID)
	if err != nil || state != domain.JobStateProcessed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoices are not available for this file."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_id":   upload.FileID,
		"file_name": upload.FileName,
		"rows":      upload.Rows,
	})
}
