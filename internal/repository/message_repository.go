package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type MessageRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewMessageRepo(db *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// символы шаблона LIKE ищутся буквально
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var messageColumns = []string{
	"id", "from_addr", "to_addr", "subject", "text_body", "html_body",
	"received_at", "status", "source", "payload",
}

// SaveMessage сохраняет входящее письмо
func (r *MessageRepo) SaveMessage(ctx context.Context, msg models.Message) error {
	const op = "repository.MessageRepo.SaveMessage"

	var payload []byte
	if len(msg.Payload) > 0 {
		payload = msg.Payload
	}

	query, args, err := r.sb.Insert("received_emails").
		Columns(messageColumns...).
		Values(
			msg.ID,
			msg.From,
			msg.To,
			msg.Subject,
			msg.Text,
			msg.HTML,
			msg.ReceivedAt,
			string(msg.Status),
			string(msg.Source),
			payload,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MessageRepo) GetMessage(ctx context.Context, id string) (models.Message, error) {
	const op = "repository.MessageRepo.GetMessage"

	query, args, err := r.sb.Select(messageColumns...).
		From("received_emails").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	msg, err := scanMessage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Message{}, fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
		}
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return msg, nil
}

// ListMessages возвращает письма от новых к старым с фильтром по тексту и статусу
func (r *MessageRepo) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	const op = "repository.MessageRepo.ListMessages"

	qb := r.sb.Select(messageColumns...).
		From("received_emails").
		OrderBy("received_at DESC")

	if filter.Query != "" {
		pattern := "%" + likeEscaper.Replace(filter.Query) + "%"
		qb = qb.Where(squirrel.Or{
			squirrel.ILike{"from_addr": pattern},
			squirrel.ILike{"subject": pattern},
			squirrel.ILike{"text_body": pattern},
		})
	}
	if filter.Status != "" && filter.Status != "all" {
		qb = qb.Where(squirrel.Eq{"status": filter.Status})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return messages, nil
}

// UpdateMessageStatus обновляет только статус письма
func (r *MessageRepo) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error {
	const op = "repository.MessageRepo.UpdateMessageStatus"

	query, args, err := r.sb.Update("received_emails").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
	}

	return nil
}

func (r *MessageRepo) DeleteMessage(ctx context.Context, id string) error {
	const op = "repository.MessageRepo.DeleteMessage"

	query, args, err := r.sb.Delete("received_emails").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMessageNotFound)
	}

	return nil
}

func scanMessage(row pgx.Row) (models.Message, error) {
	var (
		msg     models.Message
		status  string
		source  string
		payload []byte
	)
	err := row.Scan(
		&msg.ID,
		&msg.From,
		&msg.To,
		&msg.Subject,
		&msg.Text,
		&msg.HTML,
		&msg.ReceivedAt,
		&status,
		&source,
		&payload,
	)
	msg.Status = models.MessageStatus(status)
	msg.Source = models.MessageSource(source)
	if len(payload) > 0 {
		msg.Payload = payload
	}
	return msg, err
}
