package models

type BookingRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	ServiceType string `json:"serviceType" validate:"required,min=1"`
	Date        string `json:"date" validate:"required,bookingdate"`
	Message     string `json:"message" validate:"required,min=10"`
}

var ServiceTypeDisplay = map[string]string{
	"photography": "Photography",
	"videography": "Videography",
	"both":        "Photography & Videography",
}
