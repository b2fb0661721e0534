package dto

import (
	"time"

	"github.com/ignatzorin/atelier-backend/internal/models"
)

// APIResponse is the envelope every endpoint returns.
// Warning is filled when the operation succeeded but a secondary action
// (such as a notification) failed.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// ErrorResponse is the envelope for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AppointmentResponse decorates an appointment with derived fields.
// isProcessed mirrors the legacy boolean flag older consumers expect.
type AppointmentResponse struct {
	*models.Appointment
	StatusName  string `json:"status_name"`
	IsProcessed bool   `json:"isProcessed"`
}

// NewAppointmentResponse builds the response view of an appointment.
func NewAppointmentResponse(a *models.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		Appointment: a,
		StatusName:  a.Status.Name(),
		IsProcessed: a.IsProcessed(),
	}
}

// NewAppointmentListResponse builds response views for a list of appointments.
func NewAppointmentListResponse(appointments []models.Appointment) []*AppointmentResponse {
	out := make([]*AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, NewAppointmentResponse(&appointments[i]))
	}
	return out
}

// SendCodeResponse reports when the issued code expires.
// The code itself is never returned over HTTP.
type SendCodeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}
