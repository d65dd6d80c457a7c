package models

// Video это объект videos/<file> или videos/<folder>/<file>
type Video struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

type PortfolioVideo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	VideoURL  string `json:"videoUrl,omitempty"`
	Duration  string `json:"duration"`
}
