package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	displayNamesCollection = "displayNames"
	messagesCollection     = "received_emails"
	renamesCollection      = "gallery_renames"
)

// Store это DocumentStore поверх MongoDB
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Store, error) {
	const op = "mongorepo.New"

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Ping the primary
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Store{client: client, db: client.Database(database)}

	_, err = s.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "receivedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create index: %w", op, err)
	}

	return s, nil
}

func (s *Store) DisplayNames() repository.DisplayNameRepository {
	return &displayNameRepo{coll: s.db.Collection(displayNamesCollection)}
}

func (s *Store) Messages() repository.MessageRepository {
	return &messageRepo{coll: s.db.Collection(messagesCollection)}
}

func (s *Store) Renames() repository.RenameRepository {
	return &renameRepo{coll: s.db.Collection(renamesCollection)}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type displayNameRepo struct {
	coll *mongo.Collection
}

func (r *displayNameRepo) GetDisplayName(ctx context.Context, key string) (models.DisplayName, error) {
	var dn models.DisplayName
	err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&dn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.DisplayName{}, storage.ErrNotFound
		}
		return models.DisplayName{}, fmt.Errorf("mongorepo.GetDisplayName: %w", err)
	}
	return dn, nil
}

func (r *displayNameRepo) SaveDisplayName(ctx context.Context, dn models.DisplayName) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": dn.Key}, dn, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongorepo.SaveDisplayName: %w", err)
	}
	return nil
}

func (r *displayNameRepo) DeleteDisplayName(ctx context.Context, key string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongorepo.DeleteDisplayName: %w", err)
	}
	return nil
}

func (r *displayNameRepo) ListDisplayNames(ctx context.Context, typ models.DisplayNameType) ([]models.DisplayName, error) {
	filter := bson.M{}
	if typ != "" {
		filter["type"] = typ
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongorepo.ListDisplayNames: %w", err)
	}

	var out []models.DisplayName
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongorepo.ListDisplayNames: %w", err)
	}
	return out, nil
}

type messageRepo struct {
	coll *mongo.Collection
}

func (r *messageRepo) SaveMessage(ctx context.Context, msg models.Message) error {
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("mongorepo.SaveMessage: %w", err)
	}
	return nil
}

func (r *messageRepo) GetMessage(ctx context.Context, id string) (models.Message, error) {
	var msg models.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Message{}, storage.ErrMessageNotFound
		}
		return models.Message{}, fmt.Errorf("mongorepo.GetMessage: %w", err)
	}
	return msg, nil
}

func (r *messageRepo) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	q := bson.M{}
	if filter.Query != "" {
		// Case-insensitive substring search
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
		q["$or"] = bson.A{
			bson.M{"from": pattern},
			bson.M{"subject": pattern},
			bson.M{"text": pattern},
		}
	}
	if filter.Status != "" && filter.Status != "all" {
		q["status"] = filter.Status
	}

	cur, err := r.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "receivedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongorepo.ListMessages: %w", err)
	}

	messages := make([]models.Message, 0)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongorepo.ListMessages: %w", err)
	}
	return messages, nil
}

func (r *messageRepo) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("mongorepo.UpdateMessageStatus: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepo) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongorepo.DeleteMessage: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

type renameRepo struct {
	coll *mongo.Collection
}

func (r *renameRepo) SaveRename(ctx context.Context, intent models.RenameIntent) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": intent.ID}, intent, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongorepo.SaveRename: %w", err)
	}
	return nil
}

func (r *renameRepo) GetRename(ctx context.Context, id string) (models.RenameIntent, error) {
	var intent models.RenameIntent
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.RenameIntent{}, storage.ErrRenameNotFound
		}
		return models.RenameIntent{}, fmt.Errorf("mongorepo.GetRename: %w", err)
	}
	return intent, nil
}

func (r *renameRepo) ListUnfinishedRenames(ctx context.Context) ([]models.RenameIntent, error) {
	filter := bson.M{"state": bson.M{"$nin": bson.A{models.RenameCompleted, models.RenameRolledBack}}}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongorepo.ListUnfinishedRenames: %w", err)
	}

	intents := make([]models.RenameIntent, 0)
	if err := cur.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("mongorepo.ListUnfinishedRenames: %w", err)
	}
	return intents, nil
}
