package response

type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Status: "success",
		Data:   data,
	}
}

func ErrorResponseWithDetails(err, details string) ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Error:   err,
		Details: details,
	}
}

// AuthResponse is the body of the public /api/auth endpoints.
type AuthResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Authenticated *bool  `json:"authenticated,omitempty"`
	Email         string `json:"email,omitempty"`
	ExpiresAt     int64  `json:"expiresAt,omitempty"`
}

type BookingResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	EmailID string      `json:"emailId,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type WebhookResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
