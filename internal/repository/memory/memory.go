package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage"
)

// Store держит все коллекции в памяти процесса (тесты и локальный запуск)
type Store struct {
	displayNames *DisplayNameRepo
	messages     *MessageRepo
	renames      *RenameRepo
}

func New() *Store {
	return &Store{
		displayNames: NewDisplayNameRepo(),
		messages:     NewMessageRepo(),
		renames:      NewRenameRepo(),
	}
}

func (s *Store) DisplayNames() repository.DisplayNameRepository { return s.displayNames }
func (s *Store) Messages() repository.MessageRepository         { return s.messages }
func (s *Store) Renames() repository.RenameRepository           { return s.renames }
func (s *Store) HealthCheck(context.Context) error              { return nil }
func (s *Store) Close(context.Context) error                    { return nil }

type DisplayNameRepo struct {
	mu    sync.RWMutex
	items map[string]models.DisplayName
}

func NewDisplayNameRepo() *DisplayNameRepo {
	return &DisplayNameRepo{items: make(map[string]models.DisplayName)}
}

func (r *DisplayNameRepo) GetDisplayName(_ context.Context, key string) (models.DisplayName, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dn, ok := r.items[key]
	if !ok {
		return models.DisplayName{}, storage.ErrNotFound
	}
	return dn, nil
}

func (r *DisplayNameRepo) SaveDisplayName(_ context.Context, dn models.DisplayName) error {
	r.mu.Lock()
	r.items[dn.Key] = dn
	r.mu.Unlock()
	return nil
}

func (r *DisplayNameRepo) DeleteDisplayName(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.items, key)
	r.mu.Unlock()
	return nil
}

func (r *DisplayNameRepo) ListDisplayNames(_ context.Context, typ models.DisplayNameType) ([]models.DisplayName, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.DisplayName
	for _, dn := range r.items {
		if typ == "" || dn.Type == typ {
			out = append(out, dn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type MessageRepo struct {
	mu    sync.RWMutex
	items map[string]models.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{items: make(map[string]models.Message)}
}

func (r *MessageRepo) SaveMessage(_ context.Context, msg models.Message) error {
	r.mu.Lock()
	r.items[msg.ID] = msg
	r.mu.Unlock()
	return nil
}

func (r *MessageRepo) GetMessage(_ context.Context, id string) (models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.items[id]
	if !ok {
		return models.Message{}, storage.ErrMessageNotFound
	}
	return msg, nil
}

func (r *MessageRepo) ListMessages(_ context.Context, filter models.MessageFilter) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(filter.Query)
	out := make([]models.Message, 0, len(r.items))
	for _, msg := range r.items {
		if filter.Status != "" && filter.Status != "all" && string(msg.Status) != filter.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(msg.From), needle) &&
			!strings.Contains(strings.ToLower(msg.Subject), needle) &&
			!strings.Contains(strings.ToLower(msg.Text), needle) {
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	return out, nil
}

func (r *MessageRepo) UpdateMessageStatus(_ context.Context, id string, status models.MessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.items[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.Status = status
	r.items[id] = msg
	return nil
}

func (r *MessageRepo) DeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return storage.ErrMessageNotFound
	}
	delete(r.items, id)
	return nil
}

type RenameRepo struct {
	mu    sync.RWMutex
	items map[string]models.RenameIntent
}

func NewRenameRepo() *RenameRepo {
	return &RenameRepo{items: make(map[string]models.RenameIntent)}
}

func (r *RenameRepo) SaveRename(_ context.Context, intent models.RenameIntent) error {
	intent.Keys = append([]string(nil), intent.Keys...)
	intent.Copied = append([]string(nil), intent.Copied...)

	r.mu.Lock()
	r.items[intent.ID] = intent
	r.mu.Unlock()
	return nil
}

func (r *RenameRepo) GetRename(_ context.Context, id string) (models.RenameIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intent, ok := r.items[id]
	if !ok {
		return models.RenameIntent{}, storage.ErrRenameNotFound
	}
	return intent, nil
}

func (r *RenameRepo) ListUnfinishedRenames(_ context.Context) ([]models.RenameIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.RenameIntent, 0)
	for _, intent := range r.items {
		if !intent.State.Finished() {
			out = append(out, intent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
