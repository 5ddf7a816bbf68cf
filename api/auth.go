package api

type SignupRequest struct {
	Name       string `json:"name" form:"name"`
	Email      string `json:"email" form:"email"`
	Department string `json:"department" form:"department"`
}

type LoginRequest struct {
	Email string `json:"email" form:"email"`
}

// LoginResponse carries the issuance instant so the browser countdown survives reloads.
type LoginResponse struct {
	Status
	// Epoch milliseconds.
	OTPStartTime int64 `json:"otpStartTime,omitempty"`
	// Seconds.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

type VerifyOTPResponse struct {
	Status
	Redirect string `json:"redirect,omitempty"`
}

type OTPStatusResponse struct {
	Status
	// Seconds.
	Remaining int64  `json:"remaining"`
	Countdown string `json:"countdown"`
}
