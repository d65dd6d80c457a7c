package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/repository/memory"
	"ali_portfolio/internal/services/mailer"
	"ali_portfolio/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email mailer.Email) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) SaveMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessage(ctx context.Context, id string) (models.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockMessageRepository) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var forward = ForwardConfig{
	From:   "Inbox <inbox@alizidanjr.site>",
	To:     "owner@example.com",
	Domain: "alizidanjr.site",
}

func newInbox(t *testing.T) (*InboxService, *memory.MessageRepo, *MockMailer, *LocalBus) {
	t.Helper()

	repo := memory.NewMessageRepo()
	m := new(MockMailer)
	bus := NewLocalBus()

	svc := NewInboxService(slog.Default(), repo, m, bus, forward)
	return svc, repo, m, bus
}

func inbound() models.InboundEmail {
	return models.InboundEmail{
		From:    gofakeit.Email(),
		To:      "hello@alizidanjr.site",
		Subject: "Wedding in June",
		Text:    "Hello there",
		HTML:    "<p>Hello there</p>",
		Payload: json.RawMessage(`{"from":"x"}`),
	}
}

func TestInboxService_Receive(t *testing.T) {
	ctx := context.Background()
	svc, repo, m, bus := newInbox(t)
	events, cancel := bus.Subscribe()
	defer cancel()

	email := inbound()
	m.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
		return e.From == forward.From &&
			len(e.To) == 1 && e.To[0] == forward.To &&
			e.Subject == "FWD: Wedding in June (from "+email.From+")" &&
			assert.Contains(t, e.HTML, "<p>Hello there</p>") &&
			assert.Contains(t, e.HTML, "received at alizidanjr.site")
	})).Return("email-1", nil).Once()

	msg, err := svc.Receive(ctx, email, models.SourceWebhook)
	require.NoError(t, err)

	stored, err := repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageUnread, stored.Status)
	assert.Equal(t, models.SourceWebhook, stored.Source)
	assert.JSONEq(t, `{"from":"x"}`, string(stored.Payload))

	select {
	case ev := <-events:
		assert.Equal(t, models.InboxMessageCreated, ev.Type)
		assert.Equal(t, msg.ID, ev.MessageID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	m.AssertExpectations(t)
}

func TestInboxService_Receive_TextOnlyNoSubject(t *testing.T) {
	ctx := context.Background()
	svc, _, m, _ := newInbox(t)

	email := inbound()
	email.Subject = ""
	email.HTML = ""
	email.Text = "a < b"

	m.On("Send", ctx, mock.MatchedBy(func(e mailer.Email) bool {
		return e.Subject == "FWD: No Subject (from "+email.From+")" &&
			assert.Contains(t, e.HTML, `<pre style="white-space: pre-wrap;">a &lt; b</pre>`)
	})).Return("email-1", nil).Once()

	_, err := svc.Receive(ctx, email, models.SourceWebhook)
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestInboxService_Receive_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure skips forward", func(t *testing.T) {
		repo := new(MockMessageRepository)
		m := new(MockMailer)
		svc := NewInboxService(slog.Default(), repo, m, nil, forward)

		repo.On("SaveMessage", ctx, mock.Anything).Return(errors.New("db down")).Once()

		msg, err := svc.Receive(ctx, inbound(), models.SourceWebhook)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrForwardFailed)
		assert.Empty(t, msg.ID)

		repo.AssertExpectations(t)
		m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("forward failure keeps message", func(t *testing.T) {
		svc, repo, m, _ := newInbox(t)
		m.On("Send", ctx, mock.Anything).Return("", errors.New("provider down")).Once()

		msg, err := svc.Receive(ctx, inbound(), models.SourceSMTP)
		assert.ErrorIs(t, err, ErrForwardFailed)
		require.NotEmpty(t, msg.ID)

		_, err = repo.GetMessage(ctx, msg.ID)
		assert.NoError(t, err)
	})
}

func TestInboxService_List(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newInbox(t)

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	seed := []models.Message{
		{ID: "1", From: "anna@example.com", Subject: "Portrait session", Text: "hi", Status: models.MessageRead, ReceivedAt: base},
		{ID: "2", From: "bob@example.com", Subject: "Question", Text: "Do you shoot WEDDINGS?", Status: models.MessageUnread, ReceivedAt: base.Add(time.Hour)},
		{ID: "3", From: "carl@wedding.org", Subject: "Hello", Text: "x", Status: models.MessageUnread, ReceivedAt: base.Add(2 * time.Hour)},
	}
	for _, msg := range seed {
		require.NoError(t, repo.SaveMessage(ctx, msg))
	}

	tests := []struct {
		name    string
		filter  models.MessageFilter
		wantIDs []string
		wantErr error
	}{
		{"all newest first", models.MessageFilter{}, []string{"3", "2", "1"}, nil},
		{"status unread", models.MessageFilter{Status: "unread"}, []string{"3", "2"}, nil},
		{"status read", models.MessageFilter{Status: "read"}, []string{"1"}, nil},
		{"query matches from and body", models.MessageFilter{Query: " wedding "}, []string{"3", "2"}, nil},
		{"query and status", models.MessageFilter{Query: "wedding", Status: "all"}, []string{"3", "2"}, nil},
		{"query on subject", models.MessageFilter{Query: "PORTRAIT"}, []string{"1"}, nil},
		{"invalid status", models.MessageFilter{Status: "archived"}, nil, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := svc.List(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(msgs))
			for _, m := range msgs {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestInboxService_StatusAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, bus := newInbox(t)
	events, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, repo.SaveMessage(ctx, models.Message{ID: "m1", Status: models.MessageUnread}))

	status, err := svc.ToggleStatus(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MessageRead, status)

	status, err = svc.ToggleStatus(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MessageUnread, status)

	require.NoError(t, svc.SetStatus(ctx, "m1", models.MessageRead))
	msg, err := repo.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MessageRead, msg.Status)

	assert.ErrorIs(t, svc.SetStatus(ctx, "m1", "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.SetStatus(ctx, "missing", models.MessageRead), storage.ErrMessageNotFound)

	_, err = svc.ToggleStatus(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	require.NoError(t, svc.Delete(ctx, "m1"))
	assert.ErrorIs(t, svc.Delete(ctx, "m1"), storage.ErrMessageNotFound)

	var types []models.InboxEventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, []models.InboxEventType{
		models.InboxMessageUpdated,
		models.InboxMessageUpdated,
		models.InboxMessageUpdated,
		models.InboxMessageDeleted,
	}, types)
}

func TestLocalBus_Unsubscribe(t *testing.T) {
	bus := NewLocalBus()
	ch, cancel := bus.Subscribe()

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.NoError(t, bus.Publish(context.Background(), models.InboxEvent{Type: models.InboxMessageCreated}))
}

func TestRedisBus_Publish(t *testing.T) {
	ctx := context.Background()
	db, mockRedis := redismock.NewClientMock()
	bus := NewRedisBus(slog.Default(), db)

	event := models.InboxEvent{Type: models.InboxMessageCreated, MessageID: "m1", At: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	mockRedis.ExpectPublish(eventsChannel, data).SetVal(1)
	assert.NoError(t, bus.Publish(ctx, event))

	mockRedis.ExpectPublish(eventsChannel, data).SetErr(errors.New("connection refused"))
	assert.Error(t, bus.Publish(ctx, event))

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
