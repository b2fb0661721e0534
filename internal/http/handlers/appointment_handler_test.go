package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/atelier-backend/internal/http/middleware"
)

func TestAppointmentHandler_Create_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.POST("/appointments", handler.Create)

	req, _ := http.NewRequest("POST", "/appointments", strings.NewReader(`{"name":"Ли Вэй"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_Create_BadTimeFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.POST("/appointments", handler.Create)

	body := `{"appointmentTime":"завтра","name":"Ли Вэй","phone":"13800000000","email":"li@example.com"}`
	req, _ := http.NewRequest("POST", "/appointments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_Get_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.GET("/appointments/:id", middleware.IDValidator("id"), handler.Get)

	req, _ := http.NewRequest("GET", "/appointments/not-a-number", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_List_StatusOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.GET("/appointments", handler.List)

	for _, status := range []string{"7", "-1", "abc"} {
		req, _ := http.NewRequest("GET", "/appointments?status="+status, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "status=%s", status)
	}
}

func TestAppointmentHandler_List_BadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.GET("/appointments", handler.List)

	req, _ := http.NewRequest("GET", "/appointments?startDate=01-09-2026", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_UpdateStatus_MissingStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.PATCH("/appointments/:id/status", middleware.IDValidator("id"), handler.UpdateStatus)

	req, _ := http.NewRequest("PATCH", "/appointments/1/status", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseTimeParam(t *testing.T) {
	withTime, err := parseTimeParam("2026-09-10T14:00:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 14, withTime.Hour())

	dateOnly, err := parseTimeParam("2026-09-10")
	assert.NoError(t, err)
	assert.Equal(t, 0, dateOnly.Hour())

	_, err = parseTimeParam("10.09.2026")
	assert.Error(t, err)
}

func TestAppointmentHandler_StatusOptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AppointmentHandler{appointments: nil}
	r.GET("/appointments/status-options", handler.StatusOptions)

	req, _ := http.NewRequest("GET", "/appointments/status-options", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":0`)
	assert.Contains(t, w.Body.String(), "подтверждена")
}
