package firestorerepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	displayNamesCollection = "displayNames"
	messagesCollection     = "received_emails"
	renamesCollection      = "gallery_renames"
)

// Store это DocumentStore поверх Cloud Firestore
type Store struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestorerepo.New: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) DisplayNames() repository.DisplayNameRepository {
	return &displayNameRepo{coll: s.client.Collection(displayNamesCollection)}
}

func (s *Store) Messages() repository.MessageRepository {
	return &messageRepo{coll: s.client.Collection(messagesCollection)}
}

func (s *Store) Renames() repository.RenameRepository {
	return &renameRepo{coll: s.client.Collection(renamesCollection)}
}

// HealthCheck читает один документ, чтобы убедиться, что Firestore отвечает
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.Collection(displayNamesCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

type displayNameRepo struct {
	coll *firestore.CollectionRef
}

func (r *displayNameRepo) GetDisplayName(ctx context.Context, key string) (models.DisplayName, error) {
	snap, err := r.coll.Doc(key).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return models.DisplayName{}, storage.ErrNotFound
		}
		return models.DisplayName{}, fmt.Errorf("firestorerepo.GetDisplayName: %w", err)
	}

	var dn models.DisplayName
	if err := snap.DataTo(&dn); err != nil {
		return models.DisplayName{}, fmt.Errorf("firestorerepo.GetDisplayName: %w", err)
	}
	dn.Key = snap.Ref.ID
	return dn, nil
}

func (r *displayNameRepo) SaveDisplayName(ctx context.Context, dn models.DisplayName) error {
	if _, err := r.coll.Doc(dn.Key).Set(ctx, dn); err != nil {
		return fmt.Errorf("firestorerepo.SaveDisplayName: %w", err)
	}
	return nil
}

func (r *displayNameRepo) DeleteDisplayName(ctx context.Context, key string) error {
	if _, err := r.coll.Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("firestorerepo.DeleteDisplayName: %w", err)
	}
	return nil
}

func (r *displayNameRepo) ListDisplayNames(ctx context.Context, typ models.DisplayNameType) ([]models.DisplayName, error) {
	q := r.coll.Query
	if typ != "" {
		q = q.Where("type", "==", string(typ))
	}

	var out []models.DisplayName
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestorerepo.ListDisplayNames: %w", err)
		}
		var dn models.DisplayName
		if err := snap.DataTo(&dn); err != nil {
			return nil, fmt.Errorf("firestorerepo.ListDisplayNames: %w", err)
		}
		dn.Key = snap.Ref.ID
		out = append(out, dn)
	}
	return out, nil
}

type messageRepo struct {
	coll *firestore.CollectionRef
}

func (r *messageRepo) SaveMessage(ctx context.Context, msg models.Message) error {
	if _, err := r.coll.Doc(msg.ID).Create(ctx, msg); err != nil {
		return fmt.Errorf("firestorerepo.SaveMessage: %w", err)
	}
	return nil
}

func (r *messageRepo) GetMessage(ctx context.Context, id string) (models.Message, error) {
	snap, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return models.Message{}, storage.ErrMessageNotFound
		}
		return models.Message{}, fmt.Errorf("firestorerepo.GetMessage: %w", err)
	}
	return decodeMessage(snap)
}

// ListMessages: Firestore has no substring search, so the text filter runs
// over the ordered result set.
func (r *messageRepo) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	q := r.coll.OrderBy("receivedAt", firestore.Desc)
	if filter.Status != "" && filter.Status != "all" {
		q = r.coll.Where("status", "==", filter.Status).OrderBy("receivedAt", firestore.Desc)
	}

	needle := strings.ToLower(filter.Query)
	messages := make([]models.Message, 0)

	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestorerepo.ListMessages: %w", err)
		}
		msg, err := decodeMessage(snap)
		if err != nil {
			return nil, err
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(msg.From), needle) &&
			!strings.Contains(strings.ToLower(msg.Subject), needle) &&
			!strings.Contains(strings.ToLower(msg.Text), needle) {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *messageRepo) UpdateMessageStatus(ctx context.Context, id string, st models.MessageStatus) error {
	_, err := r.coll.Doc(id).Update(ctx, []firestore.Update{{Path: "status", Value: string(st)}})
	if err != nil {
		if isNotFound(err) {
			return storage.ErrMessageNotFound
		}
		return fmt.Errorf("firestorerepo.UpdateMessageStatus: %w", err)
	}
	return nil
}

func (r *messageRepo) DeleteMessage(ctx context.Context, id string) error {
	_, err := r.coll.Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if isNotFound(err) {
			return storage.ErrMessageNotFound
		}
		return fmt.Errorf("firestorerepo.DeleteMessage: %w", err)
	}
	return nil
}

func decodeMessage(snap *firestore.DocumentSnapshot) (models.Message, error) {
	var msg models.Message
	if err := snap.DataTo(&msg); err != nil {
		return models.Message{}, fmt.Errorf("firestorerepo.decodeMessage: %w", err)
	}
	msg.ID = snap.Ref.ID
	return msg, nil
}

type renameRepo struct {
	coll *firestore.CollectionRef
}

func (r *renameRepo) SaveRename(ctx context.Context, intent models.RenameIntent) error {
	if _, err := r.coll.Doc(intent.ID).Set(ctx, intent); err != nil {
		return fmt.Errorf("firestorerepo.SaveRename: %w", err)
	}
	return nil
}

func (r *renameRepo) GetRename(ctx context.Context, id string) (models.RenameIntent, error) {
	snap, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return models.RenameIntent{}, storage.ErrRenameNotFound
		}
		return models.RenameIntent{}, fmt.Errorf("firestorerepo.GetRename: %w", err)
	}
	return decodeRename(snap)
}

func (r *renameRepo) ListUnfinishedRenames(ctx context.Context) ([]models.RenameIntent, error) {
	q := r.coll.Where("state", "not-in", []string{
		string(models.RenameCompleted),
		string(models.RenameRolledBack),
	})

	intents := make([]models.RenameIntent, 0)
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestorerepo.ListUnfinishedRenames: %w", err)
		}
		intent, err := decodeRename(snap)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func decodeRename(snap *firestore.DocumentSnapshot) (models.RenameIntent, error) {
	var intent models.RenameIntent
	if err := snap.DataTo(&intent); err != nil {
		return models.RenameIntent{}, fmt.Errorf("firestorerepo.decodeRename: %w", err)
	}
	intent.ID = snap.Ref.ID
	return intent, nil
}
