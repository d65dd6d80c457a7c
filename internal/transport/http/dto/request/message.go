package request

type UpdateMessageStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=read unread"`
}
