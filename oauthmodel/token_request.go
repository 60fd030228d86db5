package oauthmodel

// RefreshRequest is the body sent to /auth/refresh and /auth/check-session.
type RefreshRequest struct {
	// RefreshToken is exchanged for a new token pair, or used to validate the session.
	// Security: never log this value
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse is the error body the backend returns on failures
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
