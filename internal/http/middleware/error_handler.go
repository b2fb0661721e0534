package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/atelier-backend/internal/logger"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, сложенные хэндлерами в c.Error,
// централизованно. Внутренние ошибки маскируются, клиенту уходит
// только безопасное сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Ответ уже отправлен обычным путём.
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		var appErr *apperror.AppError
		if errors.As(err.Err, &appErr) {
			statusCode = appErr.HTTPStatus
			if statusCode < http.StatusInternalServerError && !containsInternalKeywords(appErr.Message) {
				message = appErr.Message
			}
		}

		c.JSON(statusCode, gin.H{"success": false, "message": message})
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	lower := strings.ToLower(s)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
