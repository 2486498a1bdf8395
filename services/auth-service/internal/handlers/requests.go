package handlers

import (
	"net/mail"
	"strings"

	"github.com/salonbook/salonbook/libs/apperr"
)

const minPasswordLen = 8

type registerRequest struct {
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

func (r *registerRequest) Validate() error {
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.BusinessName == "" {
		return apperr.Validation("business_name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Validation("email is not valid")
	}
	if len(r.Password) < minPasswordLen {
		return apperr.Validation("password must be at least 8 characters")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || r.Password == "" {
		return apperr.Validation("email and password are required")
	}
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *refreshRequest) Validate() error {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
	if r.RefreshToken == "" {
		return apperr.Validation("refresh_token is required")
	}
	return nil
}

type otpRequest struct {
	TenantID string `json:"tenant_id"`
	Phone    string `json:"phone"`
}

func (r *otpRequest) Validate() error {
	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.TenantID == "" || strings.TrimSpace(r.Phone) == "" {
		return apperr.Validation("tenant_id and phone are required")
	}
	return nil
}

type otpVerifyRequest struct {
	TenantID string `json:"tenant_id"`
	Phone    string `json:"phone"`
	Code     string `json:"code"`
}

func (r *otpVerifyRequest) Validate() error {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Code = strings.TrimSpace(r.Code)
	if r.TenantID == "" || strings.TrimSpace(r.Phone) == "" || r.Code == "" {
		return apperr.Validation("tenant_id, phone and code are required")
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type meResponse struct {
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	Role       string `json:"role"`
	CustomerID string `json:"customer_id,omitempty"`
}
