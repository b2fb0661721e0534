package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/dto"
	"github.com/ignatzorin/atelier-backend/internal/http/middleware"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
)

// ErrAdminNotFound is returned when the admin id is missing from context
var ErrAdminNotFound = errors.New("администратор не найден в контексте")

// CurrentAdminID extracts the authenticated admin id from Gin context
func CurrentAdminID(c *gin.Context) (int64, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, ErrAdminNotFound
	}

	id, ok := raw.(int64)
	if !ok {
		return 0, ErrAdminNotFound
	}

	return id, nil
}

// ParseIDParam parses a positive integer id from a URL parameter
func ParseIDParam(c *gin.Context, paramName string) (int64, error) {
	param := c.Param(paramName)
	if param == "" {
		return 0, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("параметр %s должен быть положительным числом", paramName)
	}

	return id, nil
}

// BindAndValidate binds JSON request and returns properly formatted error
func BindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("ошибка валидации запроса: %w", err)
	}
	return nil
}

// RespondError sends a standardized error response
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{Success: false, Message: message})
}

// RespondAppError maps a service error onto the HTTP envelope.
// Unknown errors are masked as internal to avoid leaking details.
func RespondAppError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message := appErr.Message
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			message = "внутренняя ошибка сервера"
		}
		RespondError(c, appErr.HTTPStatus, message)
		return
	}
	RespondError(c, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

// RespondSuccess sends a standardized success response
func RespondSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "некорректный запрос"
	}
	RespondError(c, http.StatusBadRequest, message)
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
