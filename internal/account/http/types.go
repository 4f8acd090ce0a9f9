package http

import (
	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
)

// ErrorResponse mirrors httpx.ErrorResponse for the API docs.
type ErrorResponse struct {
	Error            string            `json:"error" example:"invalid_credentials"`
	ErrorDescription string            `json:"error_description,omitempty" example:"email or password is incorrect"`
	Fields           map[string]string `json:"fields,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email" example:"a@x.com"`
	Password string `json:"password" validate:"required,min=6" example:"pw123456"`
	Name     string `json:"name" validate:"required,max=100" example:"Ann"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"a@x.com"`
	Password string `json:"password" validate:"required" example:"pw123456"`
}

// SessionResponse carries the bearer token and the session snapshot.
type SessionResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type" example:"Bearer"`
	Session   domain.Session `json:"session"`
}

type ProfileRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric" example:"123456"`
}

type CompleteResetRequest struct {
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ResetResponse confirms a code was issued. Code is only filled outside
// production, where no mail is delivered.
type ResetResponse struct {
	Email     string `json:"email"`
	Code      string `json:"code,omitempty"`
	ExpiresIn int    `json:"expires_in" example:"300"`
}

type NotificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

type AccountListResponse struct {
	Accounts []domain.Public `json:"accounts"`
}

type EmailLogResponse struct {
	Emails []domain.EmailLogEntry `json:"emails"`
}

type TestEmailRequest struct {
	To string `json:"to" validate:"omitempty,email"`
}

type StatsResponse = service.Stats

type HealthChecks struct {
	Store string `json:"store"`
}

type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
