package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"

	"github.com/redis/go-redis/v9"
)

const eventsChannel = "portfolio:inbox:events"

// LocalBus раздает события подписчикам внутри процесса.
// Медленный подписчик пропускает события, а не блокирует Publish.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]chan models.InboxEvent
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan models.InboxEvent)}
}

func (b *LocalBus) Publish(_ context.Context, event models.InboxEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe возвращает канал событий и функцию отписки
func (b *LocalBus) Subscribe() (<-chan models.InboxEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan models.InboxEvent, 16)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// RedisBus публикует события в redis pub/sub, чтобы их видели все инстансы.
// Run пересылает полученные из redis события в локальную шину.
type RedisBus struct {
	log    *slog.Logger
	client *redis.Client
	local  *LocalBus
}

func NewRedisBus(log *slog.Logger, client *redis.Client) *RedisBus {
	return &RedisBus{log: log, client: client, local: NewLocalBus()}
}

func (b *RedisBus) Publish(ctx context.Context, event models.InboxEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe() (<-chan models.InboxEvent, func()) {
	return b.local.Subscribe()
}

func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.InboxEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("bad inbox event", sl.Err(err))
				continue
			}
			_ = b.local.Publish(ctx, event)
		}
	}
}
