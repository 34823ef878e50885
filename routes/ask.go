package routes

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/middleware"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"
	"pdf-qa-platform/utils"

	"github.com/gin-gonic/gin"
)

// SetupAskRoutes registers POST /ask and the /history endpoints
func SetupAskRoutes(router *gin.Engine, chat Chat) {
	router.POST("/ask", HandleAsk(chat))
	router.GET("/history", HandleHistory(chat))
	router.DELETE("/history", HandleResetHistory(chat))
	router.GET("/history/export", HandleExportHistory(chat))
}

func HandleAsk(chat Chat) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			utils.RespondWithBadRequest(c, "Question is required", gin.H{"field": "question"})
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = c.GetHeader(SessionHeader)
		}
		sessionID = services.NormalizeSessionID(sessionID)

		result, err := chat.Answer(c.Request.Context(), sessionID, req.Question)
		if err != nil {
			logger.Error("Failed to answer question",
				"session_id", sessionID,
				"request_id", middleware.GetRequestID(c),
				"error", err,
			)
			utils.RespondWithServiceError(c, "Failed to generate answer", err)
			return
		}

		c.JSON(http.StatusOK, models.AskResponse{
			Answer:    result.Answer,
			SessionID: sessionID,
		})
	}
}

func HandleHistory(chat Chat) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionFromRequest(c)

		turns, err := chat.History(c.Request.Context(), sessionID)
		if err != nil {
			utils.RespondWithServiceError(c, "Failed to load history", err)
			return
		}
		if turns == nil {
			turns = []models.Turn{}
		}

		c.JSON(http.StatusOK, models.HistoryResponse{
			SessionID: sessionID,
			Turns:     turns,
			Count:     len(turns),
			FetchedAt: time.Now(),
		})
	}
}

func HandleResetHistory(chat Chat) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionFromRequest(c)

		if err := chat.Reset(c.Request.Context(), sessionID); err != nil {
			utils.RespondWithServiceError(c, "Failed to reset history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "history cleared", "session_id": sessionID})
	}
}

// sessionFromRequest reads the session from ?session_id or the header
func sessionFromRequest(c *gin.Context) string {
	if id := c.Query("session_id"); id != "" {
		return services.NormalizeSessionID(id)
	}
	return services.NormalizeSessionID(c.GetHeader(SessionHeader))
}

// HandleExportHistory downloads a session's turns as JSON or xlsx
func HandleExportHistory(chat Chat) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionFromRequest(c)

		turns, err := chat.History(c.Request.Context(), sessionID)
		if err != nil {
			utils.RespondWithServiceError(c, "Failed to load history", err)
			return
		}

		format := c.DefaultQuery("format", services.ExportJSON)
		data, contentType, err := services.ExportHistory(sessionID, turns, format, time.Now())
		if err != nil {
			utils.RespondWithServiceError(c, "Failed to export history", err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="history-%s.%s"`, url.PathEscape(sessionID), format))
		c.Data(http.StatusOK, contentType, data)
	}
}
