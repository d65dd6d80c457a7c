package models

import "time"

// Gallery представляет папку photos/<id> в объектном хранилище
type Gallery struct {
	ID         string    `json:"id"`                   // Слаг папки
	Name       string    `json:"name"`                 // Отображаемое имя (оверлей или слаг с пробелами)
	CoverImage string    `json:"coverImage,omitempty"` // URL первой картинки в папке
	CreatedAt  time.Time `json:"createdAt"`            // Время чтения, не хранится
}

// Photo это один файл внутри галереи
type Photo struct {
	ID        string `json:"id"`
	GalleryID string `json:"galleryId"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	URL       string `json:"url"`
}

// PortfolioImage отдаётся публичной витрине
type PortfolioImage struct {
	ID       string `json:"id"`
	Src      string `json:"src"`
	Type     string `json:"type"`
	Span     string `json:"span"`
	Category string `json:"category,omitempty"`
}
