package request

type RenameVideoRequest struct {
	Path string `json:"path" validate:"required"`
	Name string `json:"name" validate:"required"`
}
