package models

type InstagramPost struct {
	ID        string `json:"id"`
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType,omitempty"`
	Permalink string `json:"permalink"`
	Caption   string `json:"caption"`
	Likes     int64  `json:"likes"`
	Comments  int64  `json:"comments"`
}

type InstagramFeed struct {
	Error  string          `json:"error,omitempty"`
	IsMock bool            `json:"isMock,omitempty"`
	Posts  []InstagramPost `json:"posts"`
}
