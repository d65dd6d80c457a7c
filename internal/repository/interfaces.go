package repository

import (
	"context"
	"time"

	"ali_portfolio/internal/domain/models"
)

// DisplayNameRepository хранит оверлей отображаемых имён (коллекция displayNames)
type DisplayNameRepository interface {
	GetDisplayName(ctx context.Context, key string) (models.DisplayName, error)
	SaveDisplayName(ctx context.Context, dn models.DisplayName) error
	DeleteDisplayName(ctx context.Context, key string) error
	ListDisplayNames(ctx context.Context, typ models.DisplayNameType) ([]models.DisplayName, error)
}

// MessageRepository хранит входящие письма (коллекция received_emails)
type MessageRepository interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	// ListMessages returns messages newest first.
	ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error
	DeleteMessage(ctx context.Context, id string) error
}

// RenameRepository хранит намерения переименования галерей
type RenameRepository interface {
	SaveRename(ctx context.Context, intent models.RenameIntent) error
	GetRename(ctx context.Context, id string) (models.RenameIntent, error)
	ListUnfinishedRenames(ctx context.Context) ([]models.RenameIntent, error)
}

type SessionRepository interface {
	RevokeSession(ctx context.Context, id string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, id string) (bool, error)
}

// DocumentStore groups the collections every document backend provides.
type DocumentStore interface {
	DisplayNames() DisplayNameRepository
	Messages() MessageRepository
	Renames() RenameRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
