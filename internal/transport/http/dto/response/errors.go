package response

func ErrInvalidRequestFormat(details string) ErrorResponse {
	return ErrorResponseWithDetails("invalid_request", details)
}

var (
	ErrUnauthorized = ErrorResponse{
		Status: "error",
		Error:  "unauthorized",
	}

	ErrNotFound = ErrorResponse{
		Status: "error",
		Error:  "not_found",
	}
)

func Internal(details string) ErrorResponse {
	return ErrorResponseWithDetails("internal_error", details)
}

func Conflict(details string) ErrorResponse {
	return ErrorResponseWithDetails("conflict", details)
}
