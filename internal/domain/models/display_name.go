package models

import "time"

type DisplayNameType string

const (
	DisplayNameVideo   DisplayNameType = "video"
	DisplayNameGallery DisplayNameType = "gallery"
)

// DisplayName хранит пользовательское имя для видео или галереи.
// Key для видео: путь с "/" -> "_" и "." -> "-", для галереи: "gallery_<slug>".
type DisplayName struct {
	Key         string          `json:"key" bson:"_id" firestore:"-"`
	Path        string          `json:"path,omitempty" bson:"path,omitempty" firestore:"path,omitempty"`
	GalleryID   string          `json:"galleryId,omitempty" bson:"galleryId,omitempty" firestore:"galleryId,omitempty"`
	DisplayName string          `json:"displayName" bson:"displayName" firestore:"displayName"`
	Type        DisplayNameType `json:"type" bson:"type" firestore:"type"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}
