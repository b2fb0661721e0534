package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/http/handlers/common"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

// SeedHandler обрабатывает запросы для генерации демонстрационных данных.
// Маршрут подключается только в development окружении.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// Seed обрабатывает POST /api/seed.
func (h *SeedHandler) Seed(c *gin.Context) {
	created, err := h.seed.Seed(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "демо-данные созданы", gin.H{
		"appointments_created": created,
	})
}
