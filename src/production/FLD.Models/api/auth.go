package api_models

// SignupRequest is the body of POST /api/signup
type SignupRequest struct {
	Username    string   `json:"username" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required"`
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	PhoneNumber *string  `json:"phone_number"`
	DateOfBirth *string  `json:"date_of_birth"`
	Address     *string  `json:"address"`
	Street1     *string  `json:"street1"`
	Street2     *string  `json:"street2"`
	City        *string  `json:"city"`
	Province    *string  `json:"province"`
	District    *string  `json:"district"`
	PostalCode  *string  `json:"postal_code"`
	Country     *string  `json:"country"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// SigninRequest is the body of POST /api/signin
type SigninRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OTPRequest is the body of POST /api/reqotp
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body of POST /api/reset-password
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// AuthResponse is returned by signup and signin
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role,omitempty"`
}

// UpdateProfileRequest is the body of PUT /api/user/update. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	PhoneNumber *string  `json:"phone_number"`
	DateOfBirth *string  `json:"date_of_birth"`
	Address     *string  `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// UpdateRoleRequest is the body of PUT /api/user/update-role
type UpdateRoleRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}
