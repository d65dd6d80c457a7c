package models

import "time"

type RenameState string

const (
	RenamePending    RenameState = "pending"
	RenameCopying    RenameState = "copying"
	RenameCopied     RenameState = "copied"
	RenameCompleted  RenameState = "completed"
	RenameRolledBack RenameState = "rolled_back"
	// compensation itself failed, needs a manual rollback
	RenameFailed RenameState = "failed"
)

func (s RenameState) Finished() bool {
	return s == RenameCompleted || s == RenameRolledBack
}

// RenameIntent это запись о переименовании галереи (копирование, затем удаление оригиналов)
type RenameIntent struct {
	ID          string      `json:"id" bson:"_id" firestore:"-"`
	FromSlug    string      `json:"fromSlug" bson:"fromSlug" firestore:"fromSlug"`
	ToSlug      string      `json:"toSlug" bson:"toSlug" firestore:"toSlug"`
	DisplayName string      `json:"displayName" bson:"displayName" firestore:"displayName"`
	State       RenameState `json:"state" bson:"state" firestore:"state"`
	Keys        []string    `json:"keys" bson:"keys" firestore:"keys"`       // исходные объекты
	Copied      []string    `json:"copied" bson:"copied" firestore:"copied"` // исходные ключи, уже скопированные
	Error       string      `json:"error,omitempty" bson:"error,omitempty" firestore:"error,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

func (r RenameIntent) Touches(slug string) bool {
	return r.FromSlug == slug || r.ToSlug == slug
}
