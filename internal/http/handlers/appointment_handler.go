package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/atelier-backend/internal/dto"
	"github.com/ignatzorin/atelier-backend/internal/http/handlers/common"
	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/service"
)

// AppointmentHandler обслуживает заявки: публичное создание с витрины
// и управление из админки.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler создаёт новый хэндлер.
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Create обрабатывает POST /api/appointments — форма бронирования на витрине.
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "время визита, имя, телефон и email обязательны")
		return
	}

	appointmentTime, err := parseTimeParam(req.AppointmentTime)
	if err != nil {
		common.RespondBadRequest(c, "время визита должно быть в формате ISO 8601")
		return
	}

	appointment, err := h.appointments.Create(c.Request.Context(), service.CreateAppointmentInput{
		AppointmentTime: appointmentTime,
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Notes:           req.Notes,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "заявка создана", dto.NewAppointmentResponse(appointment))
}

// List обрабатывает GET /api/admin/appointments.
// Фильтры: status, startDate, endDate; пагинация: page, limit.
func (h *AppointmentHandler) List(c *gin.Context) {
	input := service.ListAppointmentsInput{}

	if statusStr := c.Query("status"); statusStr != "" {
		status := common.ParseIntQuery(c, "status", -1)
		if status < 0 || status > 3 {
			common.RespondBadRequest(c, "статус должен быть числом от 0 до 3")
			return
		}
		s := models.AppointmentStatus(status)
		input.Status = &s
	}

	if startStr := c.Query("startDate"); startStr != "" {
		start, err := parseTimeParam(startStr)
		if err != nil {
			common.RespondBadRequest(c, "начальная дата должна быть в формате YYYY-MM-DD")
			return
		}
		input.StartDate = &start
	}
	if endStr := c.Query("endDate"); endStr != "" {
		end, err := parseTimeParam(endStr)
		if err != nil {
			common.RespondBadRequest(c, "конечная дата должна быть в формате YYYY-MM-DD")
			return
		}
		input.EndDate = &end
	}

	page := common.ParseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := common.ParseIntQuery(c, "limit", 10)
	input.Take = limit
	input.Skip = (page - 1) * limit

	appointments, err := h.appointments.List(c.Request.Context(), input)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", dto.NewAppointmentListResponse(appointments))
}

// Get обрабатывает GET /api/admin/appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	appointment, err := h.appointments.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", dto.NewAppointmentResponse(appointment))
}

// Update обрабатывает PUT /api/admin/appointments/:id — частичное обновление
// полей заявки. Статус этим путём не меняется.
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, "")
		return
	}

	upd := repository.AppointmentUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Notes: req.Notes,
	}
	if req.AppointmentTime != nil {
		parsed, err := parseTimeParam(*req.AppointmentTime)
		if err != nil {
			common.RespondBadRequest(c, "время визита должно быть в формате ISO 8601")
			return
		}
		upd.AppointmentTime = &parsed
	}

	result, err := h.appointments.Update(c.Request.Context(), id, upd)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "заявка обновлена",
		Data:    dto.NewAppointmentResponse(result.Appointment),
		Warning: result.Warning,
	})
}

// UpdateStatus обрабатывает PATCH /api/admin/appointments/:id/status.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil || req.Status == nil {
		common.RespondBadRequest(c, "поле status обязательно")
		return
	}

	result, err := h.appointments.Transition(c.Request.Context(), id, models.AppointmentStatus(*req.Status))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.APIResponse{
		Success: true,
		Message: "статус обновлён",
		Data:    dto.NewAppointmentResponse(result.Appointment),
		Warning: result.Warning,
	})
}

// Delete обрабатывает DELETE /api/admin/appointments/:id.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if _, err := h.appointments.Delete(c.Request.Context(), id); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "заявка удалена", nil)
}

// Stats обрабатывает GET /api/admin/appointments/stats.
func (h *AppointmentHandler) Stats(c *gin.Context) {
	stats, err := h.appointments.Stats(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", stats)
}

// StatusOptions обрабатывает GET /api/admin/appointments/status-options.
// Список статусов для выпадающего списка в админке.
func (h *AppointmentHandler) StatusOptions(c *gin.Context) {
	common.RespondSuccess(c, http.StatusOK, "", models.StatusOptions())
}

// parseTimeParam принимает дату с временем (RFC 3339) или просто дату.
func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
