package memory_test

import (
	"context"
	"testing"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/repository/memory"
	"ali_portfolio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepo_ListMessages(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMessageRepo()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	msgs := []models.Message{
		{ID: "1", From: "anna@example.com", Subject: "Wedding", Text: "Hello", ReceivedAt: base, Status: models.MessageUnread},
		{ID: "2", From: "bob@example.com", Subject: "Invoice", Text: "see attached WEDDING photos", ReceivedAt: base.Add(time.Hour), Status: models.MessageRead},
		{ID: "3", From: "carl@example.com", Subject: "Hi", Text: "nothing", ReceivedAt: base.Add(2 * time.Hour), Status: models.MessageUnread},
	}
	for _, m := range msgs {
		require.NoError(t, repo.SaveMessage(ctx, m))
	}

	tests := []struct {
		name   string
		filter models.MessageFilter
		want   []string
	}{
		{name: "all newest first", filter: models.MessageFilter{Status: "all"}, want: []string{"3", "2", "1"}},
		{name: "query is case insensitive", filter: models.MessageFilter{Query: "wedding"}, want: []string{"2", "1"}},
		{name: "status unread", filter: models.MessageFilter{Status: "unread"}, want: []string{"3", "1"}},
		{name: "query and status", filter: models.MessageFilter{Query: "wedding", Status: "read"}, want: []string{"2"}},
		{name: "from matches", filter: models.MessageFilter{Query: "CARL"}, want: []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListMessages(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMessageRepo_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMessageRepo()

	require.NoError(t, repo.SaveMessage(ctx, models.Message{ID: "m1", Status: models.MessageUnread}))

	require.NoError(t, repo.UpdateMessageStatus(ctx, "m1", models.MessageRead))
	msg, err := repo.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MessageRead, msg.Status)

	assert.ErrorIs(t, repo.UpdateMessageStatus(ctx, "missing", models.MessageRead), storage.ErrMessageNotFound)

	require.NoError(t, repo.DeleteMessage(ctx, "m1"))
	_, err = repo.GetMessage(ctx, "m1")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	assert.ErrorIs(t, repo.DeleteMessage(ctx, "m1"), storage.ErrMessageNotFound)
}

func TestRenameRepo_ListUnfinished(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRenameRepo()
	now := time.Now()

	for i, st := range []models.RenameState{
		models.RenamePending, models.RenameCompleted, models.RenameCopied,
		models.RenameRolledBack, models.RenameFailed,
	} {
		require.NoError(t, repo.SaveRename(ctx, models.RenameIntent{
			ID:        string(st),
			State:     st,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := repo.ListUnfinishedRenames(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.RenamePending, got[0].State)
	assert.Equal(t, models.RenameCopied, got[1].State)
	assert.Equal(t, models.RenameFailed, got[2].State)

	_, err = repo.GetRename(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrRenameNotFound)
}

func TestDisplayNameRepo(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDisplayNameRepo()

	require.NoError(t, repo.SaveDisplayName(ctx, models.DisplayName{Key: "gallery_a", DisplayName: "A", Type: models.DisplayNameGallery}))
	require.NoError(t, repo.SaveDisplayName(ctx, models.DisplayName{Key: "videos_x-mp4", DisplayName: "X", Type: models.DisplayNameVideo}))
	require.NoError(t, repo.SaveDisplayName(ctx, models.DisplayName{Key: "gallery_a", DisplayName: "A2", Type: models.DisplayNameGallery}))

	dn, err := repo.GetDisplayName(ctx, "gallery_a")
	require.NoError(t, err)
	assert.Equal(t, "A2", dn.DisplayName, "last write wins")

	videos, err := repo.ListDisplayNames(ctx, models.DisplayNameVideo)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "videos_x-mp4", videos[0].Key)

	require.NoError(t, repo.DeleteDisplayName(ctx, "gallery_a"))
	_, err = repo.GetDisplayName(ctx, "gallery_a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
