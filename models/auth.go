// models/auth.go

package models

// Response is the standard API response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type SignupRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"fullName" validate:"required"`
	UserType     string `json:"userType"` // "vendor" (default) or "admin"
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"` // code of the referring vendor
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

type LoginResponse struct {
	Token         string `json:"token"`
	RefreshToken  string `json:"refreshToken"`
	RememberToken string `json:"rememberToken,omitempty"`
	User          User   `json:"user"`
}

// RememberLoginRequest is the request body for redeeming a remember-me token
type RememberLoginRequest struct {
	RememberToken string `json:"rememberToken" validate:"required"`
}

// FCMTokenUpdateRequest is the request body for updating a device push token
type FCMTokenUpdateRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}
