package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00")
)

type fakeImageStore struct {
	saved       map[string][]byte
	contentType string
	err         error
}

func (f *fakeImageStore) Save(_ context.Context, name, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[name] = data
	f.contentType = contentType
	return "/uploads/" + name, nil
}

func newEventService(t *testing.T, images *fakeImageStore) *EventService {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager(memory.NewStore())
	svc := NewEventService(rm, images, 64, testLogger())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		page, limit string
		want        models.Page
		wantField   string
	}{
		{"", "", models.Page{}, ""},
		{"1", "", models.Page{Offset: 0, Limit: 10}, ""},
		{"3", "20", models.Page{Offset: 40, Limit: 20}, ""},
		{"", "5", models.Page{Offset: 0, Limit: 5}, ""},
		{"0", "5", models.Page{}, "page"},
		{"x", "5", models.Page{}, "page"},
		{"1", "0", models.Page{}, "limit"},
		{"1", "101", models.Page{}, "limit"},
	}
	for _, tt := range tests {
		got, err := ParsePage(tt.page, tt.limit)
		if tt.wantField != "" {
			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve, "page=%q limit=%q", tt.page, tt.limit)
			assert.Equal(t, []string{tt.wantField}, ve.Fields)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEventService_CreateAndList(t *testing.T) {
	svc := newEventService(t, &fakeImageStore{})
	ctx := context.Background()

	later, err := svc.Create(ctx, 1, EventInput{Title: " Later ", Date: "2026-06-02T18:00:00Z"})
	require.NoError(t, err)
	sooner, err := svc.Create(ctx, 2, EventInput{Title: "Sooner", Date: "2026-06-01"})
	require.NoError(t, err)

	assert.Equal(t, "Later", later.Title)
	assert.Equal(t, int64(1), later.CreatedBy)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), sooner.Date)

	list, err := svc.List(ctx, models.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sooner.ID, list[0].ID)
	assert.Equal(t, later.ID, list[1].ID)

	page, err := svc.List(ctx, models.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, later.ID, page[0].ID)

	got, err := svc.Get(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, later.Title, got.Title)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEventService_CreateValidation(t *testing.T) {
	svc := newEventService(t, &fakeImageStore{})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, EventInput{})
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Missing)
	assert.Equal(t, []string{"title", "date"}, ve.Fields)

	_, err = svc.Create(ctx, 1, EventInput{Title: "T", Date: "tomorrow"})
	require.ErrorAs(t, err, &ve)
	assert.False(t, ve.Missing)
	assert.Equal(t, []string{"date"}, ve.Fields)

	_, err = svc.Create(ctx, 1, EventInput{Title: " \t ", Date: "2026-06-01"})
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Missing)
	assert.Equal(t, []string{"title"}, ve.Fields)
}

func TestEventService_UpdateOwnership(t *testing.T) {
	svc := newEventService(t, &fakeImageStore{})
	ctx := context.Background()

	e, err := svc.Create(ctx, 1, EventInput{Title: "T", Date: "2026-06-01"})
	require.NoError(t, err)

	title := "Renamed"
	desc := "now with text"
	updated, err := svc.Update(ctx, 1, e.ID, EventPatch{Title: &title, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "now with text", *updated.Description)
	assert.Equal(t, e.Date, updated.Date)

	_, err = svc.Update(ctx, 2, e.ID, EventPatch{Title: &title})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.Update(ctx, 1, 999, EventPatch{Title: &title})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	bad := "soon"
	_, err = svc.Update(ctx, 1, e.ID, EventPatch{Date: &bad})
	var ve *common.ValidationError
	assert.ErrorAs(t, err, &ve)

	empty := ""
	_, err = svc.Update(ctx, 1, e.ID, EventPatch{Title: &empty})
	assert.ErrorAs(t, err, &ve)

	blank := "   "
	_, err = svc.Update(ctx, 1, e.ID, EventPatch{Title: &blank})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"title"}, ve.Fields)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestEventService_Delete(t *testing.T) {
	svc := newEventService(t, &fakeImageStore{})
	ctx := context.Background()

	e, err := svc.Create(ctx, 1, EventInput{Title: "T", Date: "2026-06-01"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 2, e.ID), common.ErrorNotFound)
	require.NoError(t, svc.Delete(ctx, 1, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, 1, e.ID), common.ErrorNotFound)

	_, err = svc.Get(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEventService_UploadImage(t *testing.T) {
	images := &fakeImageStore{}
	svc := newEventService(t, images)
	ctx := context.Background()

	e, err := svc.Create(ctx, 1, EventInput{Title: "T", Date: "2026-06-01"})
	require.NoError(t, err)

	updated, err := svc.UploadImage(ctx, 1, e.ID, pngBytes)
	require.NoError(t, err)
	require.NotNil(t, updated.ImageURL)
	assert.Regexp(t, `^/uploads/1700000000000-[0-9a-f-]{36}\.png$`, *updated.ImageURL)
	assert.Equal(t, "image/png", images.contentType)
	assert.Len(t, images.saved, 1)

	// Replacing keeps the previous file.
	again, err := svc.UploadImage(ctx, 1, e.ID, pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, *updated.ImageURL, *again.ImageURL)
	assert.Len(t, images.saved, 2)
}

func TestEventService_UploadImageRejections(t *testing.T) {
	images := &fakeImageStore{}
	svc := newEventService(t, images)
	ctx := context.Background()

	e, err := svc.Create(ctx, 1, EventInput{Title: "T", Date: "2026-06-01"})
	require.NoError(t, err)

	_, err = svc.UploadImage(ctx, 2, e.ID, pngBytes)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.UploadImage(ctx, 1, 999, pngBytes)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.UploadImage(ctx, 1, e.ID, gifBytes)
	assert.ErrorIs(t, err, common.ErrUnsupportedImage)

	big := append(append([]byte{}, pngBytes...), make([]byte, 64)...)
	_, err = svc.UploadImage(ctx, 1, e.ID, big)
	assert.ErrorIs(t, err, common.ErrImageTooLarge)

	assert.Empty(t, images.saved)

	images.err = errors.New("bucket gone")
	_, err = svc.UploadImage(ctx, 1, e.ID, pngBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImageURL)
}
