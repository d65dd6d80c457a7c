package services

import (
	"context"
	"sort"
	"testing"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/services/overlay"
	"ali_portfolio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) seedSummer(t *testing.T) {
	t.Helper()
	f.put(t, "photos/summer/.placeholder", "")
	f.put(t, "photos/summer/a.jpg", "aaa")
	f.put(t, "photos/summer/b.jpg", "bbbb")
}

func (f *fixture) keysUnder(t *testing.T, slug string) []string {
	t.Helper()
	l, err := f.store.MemoryStore.List(context.Background(), "photos/"+slug)
	require.NoError(t, err)

	keys := make([]string, 0, len(l.Objects))
	for _, obj := range l.Objects {
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys
}

func TestRenameGallery_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)
	require.NoError(t, f.overlay.SetGalleryName(ctx, "summer", "Old Name"))

	intent, err := f.svc.RenameGallery(ctx, "summer", "Summer 2026")
	require.NoError(t, err)

	assert.Equal(t, models.RenameCompleted, intent.State)
	assert.Equal(t, "summer", intent.FromSlug)
	assert.Equal(t, "summer_2026", intent.ToSlug)
	assert.Empty(t, f.keysUnder(t, "summer"))
	assert.Equal(t, []string{
		"photos/summer_2026/.placeholder",
		"photos/summer_2026/a.jpg",
		"photos/summer_2026/b.jpg",
	}, f.keysUnder(t, "summer_2026"))

	obj, err := f.store.Stat(ctx, "photos/summer_2026/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size)

	assert.Equal(t, "Summer 2026", f.overlay.ResolveGallery(ctx, "summer_2026", "summer 2026"))
	_, err = f.names.GetDisplayName(ctx, overlay.GalleryKey("summer"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stored, err := f.renames.GetRename(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RenameCompleted, stored.State)

	pending, err := f.svc.ListPendingRenames(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRenameGallery_SameSlugRenamesOverlayOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)

	intent, err := f.svc.RenameGallery(ctx, "summer", "  SUMMER ")
	require.NoError(t, err)

	assert.Equal(t, models.RenameCompleted, intent.State)
	assert.Len(t, f.keysUnder(t, "summer"), 3)
	assert.Equal(t, "SUMMER", f.overlay.ResolveGallery(ctx, "summer", "summer"))

	pending, err := f.svc.ListPendingRenames(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRenameGallery_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		from        string
		newName     string
		mockSetup   func(t *testing.T, f *fixture)
		expectedErr error
	}{
		{
			name:        "invalid source",
			from:        "a/b",
			newName:     "x",
			expectedErr: ErrInvalidGallery,
		},
		{
			name:        "empty new name",
			from:        "summer",
			newName:     "  ",
			expectedErr: ErrEmptyName,
		},
		{
			name:        "missing source",
			from:        "nope",
			newName:     "x",
			expectedErr: ErrGalleryNotFound,
		},
		{
			name:    "target exists",
			from:    "summer",
			newName: "Winter",
			mockSetup: func(t *testing.T, f *fixture) {
				f.put(t, "photos/winter/.placeholder", "")
			},
			expectedErr: ErrGalleryExists,
		},
		{
			name:    "unfinished intent on target",
			from:    "summer",
			newName: "Winter",
			mockSetup: func(t *testing.T, f *fixture) {
				require.NoError(t, f.renames.SaveRename(ctx, models.RenameIntent{
					ID:       "stuck",
					FromSlug: "autumn",
					ToSlug:   "winter",
					State:    models.RenameCopied,
				}))
			},
			expectedErr: ErrRenameInProgress,
		},
		{
			name:    "rename running in process",
			from:    "summer",
			newName: "Winter",
			mockSetup: func(t *testing.T, f *fixture) {
				require.True(t, f.svc.acquire("summer"))
			},
			expectedErr: ErrRenameInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedSummer(t)
			if tt.mockSetup != nil {
				tt.mockSetup(t, f)
			}

			_, err := f.svc.RenameGallery(ctx, tt.from, tt.newName)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Len(t, f.keysUnder(t, "summer"), 3)
		})
	}
}

func TestRenameGallery_CopyFailureCompensates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)
	f.store.failPut = func(key string) bool { return key == "photos/winter/b.jpg" }

	intent, err := f.svc.RenameGallery(ctx, "summer", "Winter")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, models.RenameRolledBack, intent.State)
	assert.Empty(t, intent.Copied)
	assert.Equal(t, "boom", intent.Error)

	assert.Empty(t, f.keysUnder(t, "winter"))
	assert.Len(t, f.keysUnder(t, "summer"), 3)

	stored, err := f.renames.GetRename(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RenameRolledBack, stored.State)

	// the slugs are free again
	f.store.failPut = nil
	intent, err = f.svc.RenameGallery(ctx, "summer", "Winter")
	require.NoError(t, err)
	assert.Equal(t, models.RenameCompleted, intent.State)
}

func TestRenameGallery_CompensationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)
	f.store.failPut = func(key string) bool { return key == "photos/winter/b.jpg" }
	f.store.failDelete = func(key string) bool { return key == "photos/winter/a.jpg" }

	intent, err := f.svc.RenameGallery(ctx, "summer", "Winter")
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.Equal(t, models.RenameFailed, intent.State)
	assert.Contains(t, f.keysUnder(t, "winter"), "photos/winter/a.jpg")

	_, err = f.svc.ResumeRename(ctx, intent.ID)
	assert.ErrorIs(t, err, ErrInvalidRenameState)

	f.store.failPut = nil
	f.store.failDelete = nil

	intent, err = f.svc.RollbackRename(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RenameRolledBack, intent.State)
	assert.Empty(t, f.keysUnder(t, "winter"))
	assert.Len(t, f.keysUnder(t, "summer"), 3)
}

func TestRenameGallery_DeleteFailureIsResumable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)
	f.store.failDelete = func(key string) bool { return key == "photos/summer/a.jpg" }

	intent, err := f.svc.RenameGallery(ctx, "summer", "Winter")
	assert.ErrorIs(t, err, ErrRenameIncomplete)
	assert.Equal(t, models.RenameCopied, intent.State)
	assert.NotEmpty(t, intent.Error)
	assert.Len(t, f.keysUnder(t, "winter"), 3)

	pending, err := f.svc.ListPendingRenames(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, intent.ID, pending[0].ID)

	_, err = f.svc.RollbackRename(ctx, intent.ID)
	assert.ErrorIs(t, err, ErrInvalidRenameState)

	f.store.failDelete = nil

	intent, err = f.svc.ResumeRename(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RenameCompleted, intent.State)
	assert.Empty(t, intent.Error)
	assert.Empty(t, f.keysUnder(t, "summer"))
	assert.Equal(t, "Winter", f.overlay.ResolveGallery(ctx, "winter", "winter"))
}

func TestResumeRename_SkipsCopiedKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSummer(t)
	f.put(t, "photos/winter/a.jpg", "aaa")

	require.NoError(t, f.renames.SaveRename(ctx, models.RenameIntent{
		ID:          "interrupted",
		FromSlug:    "summer",
		ToSlug:      "winter",
		DisplayName: "Winter",
		State:       models.RenameCopying,
		Keys:        []string{"photos/summer/.placeholder", "photos/summer/a.jpg", "photos/summer/b.jpg"},
		Copied:      []string{"photos/summer/a.jpg"},
	}))
	f.store.failPut = func(key string) bool { return key == "photos/winter/a.jpg" }

	intent, err := f.svc.ResumeRename(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(t, models.RenameCompleted, intent.State)
	assert.Len(t, intent.Copied, 3)
	assert.Len(t, f.keysUnder(t, "winter"), 3)
	assert.Empty(t, f.keysUnder(t, "summer"))
}

func TestResumeRename_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ResumeRename(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRenameNotFound)

	require.NoError(t, f.renames.SaveRename(ctx, models.RenameIntent{
		ID: "done", FromSlug: "a", ToSlug: "b", State: models.RenameCompleted,
	}))
	_, err = f.svc.ResumeRename(ctx, "done")
	assert.ErrorIs(t, err, ErrInvalidRenameState)

	require.NoError(t, f.renames.SaveRename(ctx, models.RenameIntent{
		ID: "busy", FromSlug: "c", ToSlug: "d", State: models.RenameCopied,
	}))
	require.True(t, f.svc.acquire("d"))
	_, err = f.svc.ResumeRename(ctx, "busy")
	assert.ErrorIs(t, err, ErrRenameAlreadyActive)
}

func TestReportPendingRenames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.renames.SaveRename(ctx, models.RenameIntent{
		ID: "stuck", FromSlug: "a", ToSlug: "b", State: models.RenameCopied,
		Keys: []string{"photos/a/1.jpg"}, Copied: []string{"photos/a/1.jpg"},
	}))

	assert.NotPanics(t, func() { f.svc.ReportPendingRenames(ctx) })
}
