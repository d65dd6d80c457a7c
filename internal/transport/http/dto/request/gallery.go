package request

// CreateGalleryRequest создаёт папку галереи из отображаемого имени
type CreateGalleryRequest struct {
	Name string `json:"name" validate:"required"`
}

type RenameGalleryRequest struct {
	Name string `json:"name" validate:"required"`
}
