package routes

import (
	"errors"
	"net/http"
	"strconv"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/queue"
	"pdf-qa-platform/middleware"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"
	"pdf-qa-platform/utils"

	"github.com/gin-gonic/gin"
)

// SetupUploadRoutes registers POST /upload and GET /upload/status/:task_id.
// tasks may be nil when async ingestion is disabled.
func SetupUploadRoutes(router *gin.Engine, cfg *config.Config, store *services.UploadStore, ingester Ingester, tasks TaskQueue) {
	upload := router.Group("/upload")
	upload.POST("", middleware.RequestSizeLimit(cfg.MaxFileSize), HandlePDFUpload(cfg, store, ingester, tasks))
	upload.GET("/status/:task_id", HandleUploadStatus(tasks))
}

// HandlePDFUpload stores the multipart field "pdf" and indexes it, either
// inline or through the task queue when ?async=true.
func HandlePDFUpload(cfg *config.Config, store *services.UploadStore, ingester Ingester, tasks TaskQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := middleware.GetRequestID(c)

		file, header, err := c.Request.FormFile("pdf")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondWithTooLarge(c, "File size exceeds maximum limit", gin.H{"max_size": cfg.MaxFileSize})
				return
			}
			utils.RespondWithError(c, http.StatusBadRequest, "no_file", "No file uploaded", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithTooLarge(c, "File size exceeds maximum limit", gin.H{"max_size": cfg.MaxFileSize})
			return
		}
		if err := services.CheckPDF(file, header.Filename, header.Header.Get("Content-Type")); err != nil {
			utils.RespondWithServiceError(c, "Failed to read upload", err)
			return
		}

		name, path, err := store.Save(file, header.Filename, cfg.MaxFileSize)
		if err != nil {
			logger.Error("Failed to store upload", "file", header.Filename, "request_id", requestID, "error", err)
			utils.RespondWithInternalError(c, "Failed to upload PDF", err.Error())
			return
		}

		async, _ := strconv.ParseBool(c.Query("async"))
		if async {
			if tasks == nil {
				store.Remove(name)
				utils.RespondWithUnavailable(c, "Async ingestion is not enabled")
				return
			}
			taskID, err := tasks.EnqueueIngest(c.Request.Context(), queue.IngestPayload{
				FilePath:     path,
				StoredName:   name,
				OriginalName: header.Filename,
				RequestID:    requestID,
			})
			if err != nil {
				store.Remove(name)
				utils.RespondWithError(c, http.StatusInternalServerError, "queue_error", "Failed to upload PDF", err.Error())
				return
			}
			c.JSON(http.StatusAccepted, models.UploadResponse{
				Message:  "PDF upload accepted for processing",
				FileName: name,
				TaskID:   taskID,
			})
			return
		}

		result, err := ingester.Ingest(c.Request.Context(), path, header.Filename)
		if err != nil {
			if rmErr := store.Remove(name); rmErr != nil {
				logger.Warn("Failed to remove upload after ingestion failure", "file", name, "error", rmErr)
			}
			utils.RespondWithServiceError(c, "Failed to upload PDF", err)
			return
		}

		logger.Info("Upload indexed", "file", name, "source", header.Filename, "chunks", result.Chunks, "request_id", requestID)
		c.JSON(http.StatusOK, models.UploadResponse{
			Message:  "PDF uploaded successfully",
			FileName: name,
			Pages:    result.Pages,
			Chunks:   result.Chunks,
		})
	}
}

// HandleUploadStatus reports the state of an async ingestion task
func HandleUploadStatus(tasks TaskQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tasks == nil {
			utils.RespondWithUnavailable(c, "Async ingestion is not enabled")
			return
		}

		status, err := tasks.Status(c.Request.Context(), c.Param("task_id"))
		if err != nil {
			if errors.Is(err, queue.ErrTaskNotFound) {
				utils.RespondWithNotFound(c, "Task not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to fetch task status", err.Error())
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
