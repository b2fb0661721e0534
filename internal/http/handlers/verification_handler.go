package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/dto"
	"github.com/ignatzorin/atelier-backend/internal/http/handlers/common"
	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

// VerificationHandler обслуживает выдачу и проверку кодов подтверждения email.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler создаёт новый хэндлер.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// SendCode обрабатывает POST /api/verification/send-code.
// Тип кода по умолчанию — регистрация.
func (h *VerificationHandler) SendCode(c *gin.Context) {
	var req dto.SendCodeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "email обязателен")
		return
	}

	codeType := req.Type
	if codeType == "" {
		codeType = models.VerificationTypeRegistration
	}

	code, err := h.verification.RequestCode(c.Request.Context(), req.Email, codeType)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "код отправлен на указанный email", dto.SendCodeResponse{
		ExpiresAt: code.ExpiresAt,
	})
}

// VerifyCode обрабатывает POST /api/verification/verify-code.
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req dto.VerifyCodeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "email и код обязательны")
		return
	}

	codeType := req.Type
	if codeType == "" {
		codeType = models.VerificationTypeRegistration
	}

	if err := h.verification.VerifyCode(c.Request.Context(), req.Email, req.Code, codeType); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "код подтверждён", nil)
}
