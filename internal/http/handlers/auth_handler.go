package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/dto"
	"github.com/ignatzorin/atelier-backend/internal/http/handlers/common"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

// AuthHandler обслуживает вход администраторов и обновление токенов.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт новый хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "имя пользователя и пароль обязательны")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "вход выполнен", loginResponse{
		AccessToken:  result.TokenPair.AccessToken,
		RefreshToken: result.TokenPair.RefreshToken,
		Username:     result.User.Username,
		Role:         result.User.Role,
	})
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Me обрабатывает GET /api/admin/me: профиль текущего администратора.
func (h *AuthHandler) Me(c *gin.Context) {
	id, err := common.CurrentAdminID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, "требуется авторизация")
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", profileResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// Refresh обрабатывает POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "refresh_token обязателен")
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", loginResponse{
		AccessToken:  result.TokenPair.AccessToken,
		RefreshToken: result.TokenPair.RefreshToken,
		Username:     result.User.Username,
		Role:         result.User.Role,
	})
}
