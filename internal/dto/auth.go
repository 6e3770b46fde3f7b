package dto

import "github.com/noah-isme/sma-attendance-portal/internal/models"

// SignInRequest is posted by the sign-in tab of the entry page.
type SignInRequest struct {
	Email    string `form:"email" json:"email" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// SignUpRequest is posted by the sign-up tab of the entry page.
type SignUpRequest struct {
	Name     string      `form:"name" json:"name" validate:"required"`
	Email    string      `form:"email" json:"email" validate:"required"`
	Password string      `form:"password" json:"password" validate:"required"`
	Role     models.Role `form:"role" json:"role" validate:"required,oneof=teacher student"`
}
