package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/atelier-backend/internal/http/middleware"
	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

// stubAdminRepo отдаёт единственного администратора по id 1.
type stubAdminRepo struct{}

func (stubAdminRepo) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return nil, repository.ErrAdminUserNotFound
}

func (stubAdminRepo) GetByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	if id != 1 {
		return nil, repository.ErrAdminUserNotFound
	}
	return &models.AdminUser{ID: 1, Username: "admin", Role: "admin", IsActive: true}, nil
}

func (stubAdminRepo) RecordFailedLogin(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	return nil
}

func (stubAdminRepo) RecordSuccessfulLogin(ctx context.Context, id int64) error {
	return nil
}

func TestAuthHandler_Me_WithoutContextID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AuthHandler{auth: nil}
	r.GET("/me", handler.Me)

	req, _ := http.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Me_ReturnsProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := service.NewAuthService(stubAdminRepo{}, nil)
	handler := NewAuthHandler(auth)
	r.GET("/me", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, int64(1))
	}, handler.Me)

	req, _ := http.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
}
