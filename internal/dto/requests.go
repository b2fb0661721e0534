package dto

// CreateAppointmentRequest represents the public booking form payload.
// Status is intentionally absent: new appointments always start unprocessed.
type CreateAppointmentRequest struct {
	AppointmentTime string  `json:"appointmentTime" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Phone           string  `json:"phone" binding:"required"`
	Email           string  `json:"email" binding:"required"`
	Notes           *string `json:"notes"`
}

// UpdateAppointmentRequest represents a partial appointment update.
// Nil fields are left untouched.
type UpdateAppointmentRequest struct {
	AppointmentTime *string `json:"appointmentTime"`
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	Notes           *string `json:"notes"`
}

// UpdateStatusRequest represents a status transition request.
type UpdateStatusRequest struct {
	Status *int `json:"status" binding:"required"`
}

// SendCodeRequest represents a verification code send request.
type SendCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Type  string `json:"type"`
}

// VerifyCodeRequest represents a verification code redemption request.
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Type  string `json:"type"`
}

// LoginRequest represents admin credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
