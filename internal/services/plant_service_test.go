package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
)

// countingCache is an in-memory TimelineCache that records invalidations and
// follows the same generation rule as the Redis script.
type countingCache struct {
	mu           sync.Mutex
	plants       []models.Plant
	ok           bool
	gen          int64
	invalidCount int
	staleSets    int
}

func (c *countingCache) Get(context.Context) ([]models.Plant, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plants, c.gen, c.ok
}

func (c *countingCache) Set(_ context.Context, gen int64, p []models.Plant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.staleSets++
		return
	}
	c.plants, c.ok = p, true
}

func (c *countingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.plants, c.ok = nil, false
	c.invalidCount++
}

// interleavingRepo calls between once, after the first List has read the
// store and before the result is returned.
type interleavingRepo struct {
	repository.PlantRepository
	between func()
}

func (r *interleavingRepo) List(ctx context.Context) ([]models.Plant, error) {
	plants, err := r.PlantRepository.List(ctx)
	if r.between != nil {
		between := r.between
		r.between = nil
		between()
	}
	return plants, err
}

func newTestService() (*PlantService, *repository.MemoryPlantRepository, *fakeStore, *countingCache) {
	repo := repository.NewMemoryPlantRepository()
	media := &fakeStore{}
	cache := &countingCache{}
	return NewPlantService(repo, media, cache, NewMemoryIdempotencyStore()), repo, media, cache
}

func TestPlantService_CreateValidatesBeforeUpload(t *testing.T) {
	svc, _, media, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreatePlantInput
		msg  string
	}{
		{"no image", CreatePlantInput{}, repository.MsgImageRequired},
		{"no title", CreatePlantInput{Image: pngUpload(), Description: "d"}, repository.MsgTitleRequired},
		{"no description", CreatePlantInput{Image: pngUpload(), Title: "t"}, repository.MsgDescriptionRequired},
	}
	for _, tc := range cases {
		_, _, err := svc.Create(ctx, tc.in)
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr, tc.name)
		assert.Equal(t, tc.msg, verr.Message, tc.name)
	}
	assert.Zero(t, media.Calls())
}

func TestPlantService_CreateRejectsUnsupportedFormatWithoutUpload(t *testing.T) {
	svc, _, media, _ := newTestService()
	up := &Upload{Filename: "a.gif", ContentType: "image/gif", Body: bytes.NewReader(gifBytes)}

	_, _, err := svc.Create(context.Background(), CreatePlantInput{Title: "t", Description: "d", Image: up})
	assert.True(t, isUnsupported(err))
	assert.Zero(t, media.Calls())
}

func TestPlantService_CreateAndListUsesCache(t *testing.T) {
	svc, _, media, cache := newTestService()
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, cache.ok)

	p, replayed, err := svc.Create(ctx, CreatePlantInput{Title: "Sprout", Description: "day 1", Image: pngUpload()})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "https://media.example.com/plant-growth/1.png", p.Image)
	assert.Equal(t, pngBytes, media.data[0])
	assert.Equal(t, 1, cache.invalidCount)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestPlantService_ListDoesNotCacheTimelineReadBeforeCreate(t *testing.T) {
	base := repository.NewMemoryPlantRepository()
	repo := &interleavingRepo{PlantRepository: base}
	cache := &countingCache{}
	svc := NewPlantService(repo, &fakeStore{}, cache, NewMemoryIdempotencyStore())
	ctx := context.Background()

	var created *models.Plant
	repo.between = func() {
		p, _, err := svc.Create(ctx, CreatePlantInput{Title: "Sprout", Description: "day 1", Image: pngUpload()})
		require.NoError(t, err)
		created = p
	}

	stale, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)
	assert.False(t, cache.ok)
	assert.Equal(t, 1, cache.staleSets)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.True(t, cache.ok)
}

func TestPlantService_CreateIdempotent(t *testing.T) {
	svc, repo, media, _ := newTestService()
	ctx := context.Background()
	in := CreatePlantInput{Title: "Sprout", Description: "day 1", Image: pngUpload(), IdempotencyKey: "key-1"}

	first, replayed, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.False(t, replayed)

	in.Image = pngUpload()
	second, replayed, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, media.Calls())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlantService_CreateConflictWhilePending(t *testing.T) {
	idem := NewMemoryIdempotencyStore()
	_, err := idem.Begin(context.Background(), "busy")
	require.NoError(t, err)

	svc := NewPlantService(repository.NewMemoryPlantRepository(), &fakeStore{}, nil, idem)
	_, _, err = svc.Create(context.Background(), CreatePlantInput{Title: "t", Description: "d", Image: pngUpload(), IdempotencyKey: "busy"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPlantService_FailedUploadReleasesKey(t *testing.T) {
	repo := repository.NewMemoryPlantRepository()
	media := &fakeStore{err: &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: errors.New("boom")}}
	svc := NewPlantService(repo, media, nil, nil)
	in := CreatePlantInput{Title: "t", Description: "d", Image: pngUpload(), IdempotencyKey: "k"}

	_, _, err := svc.Create(context.Background(), in)
	var merr *apperrors.MediaError
	require.ErrorAs(t, err, &merr)

	media.err = nil
	in.Image = pngUpload()
	p, replayed, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotNil(t, p)
}

func TestPlantService_UpdateDescriptionOnly(t *testing.T) {
	svc, _, media, _ := newTestService()
	ctx := context.Background()

	p, _, err := svc.Create(ctx, CreatePlantInput{Title: "Bud", Description: "closed", Image: pngUpload()})
	require.NoError(t, err)

	empty, desc := "", "opened"
	got, err := svc.Update(ctx, p.ID.Hex(), UpdatePlantInput{Title: &empty, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "opened", got.Description)
	assert.Equal(t, "Bud", got.Title)
	assert.Equal(t, p.Image, got.Image)
	assert.True(t, p.Date.Equal(got.Date))
	assert.Equal(t, 1, media.Calls())
}

func TestPlantService_UpdateImageAndDate(t *testing.T) {
	svc, _, media, _ := newTestService()
	ctx := context.Background()

	p, _, err := svc.Create(ctx, CreatePlantInput{Title: "Bud", Description: "closed", Image: pngUpload()})
	require.NoError(t, err)

	when := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	got, err := svc.Update(ctx, p.ID.Hex(), UpdatePlantInput{Date: &when, Image: pngUpload()})
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/plant-growth/2.png", got.Image)
	assert.True(t, when.Equal(got.Date))
	assert.Equal(t, 2, media.Calls())
}

func TestPlantService_UpdateMissingEntrySkipsUpload(t *testing.T) {
	svc, _, media, _ := newTestService()

	_, err := svc.Update(context.Background(), primitive.NewObjectID().Hex(), UpdatePlantInput{Image: pngUpload()})
	assert.True(t, apperrors.IsNotFound(err, apperrors.ResourcePlant))
	assert.Zero(t, media.Calls())
}

func TestPlantService_DeleteAndComments(t *testing.T) {
	svc, _, _, cache := newTestService()
	ctx := context.Background()

	p, _, err := svc.Create(ctx, CreatePlantInput{Title: "Leaf", Description: "new leaf", Image: pngUpload()})
	require.NoError(t, err)

	p, err = svc.AddComment(ctx, p.ID.Hex(), "nice")
	require.NoError(t, err)
	require.Len(t, p.Comments, 1)

	p, err = svc.RemoveComment(ctx, p.ID.Hex(), p.Comments[0].ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, p.Comments)

	require.NoError(t, svc.Delete(ctx, p.ID.Hex()))
	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, p.ID.Hex()), apperrors.ResourcePlant))
	assert.Equal(t, 4, cache.invalidCount)
}

func TestPlantService_NoMediaStoreConfigured(t *testing.T) {
	svc := NewPlantService(repository.NewMemoryPlantRepository(), nil, nil, nil)
	_, _, err := svc.Create(context.Background(), CreatePlantInput{Title: "t", Description: "d", Image: pngUpload()})
	var merr *apperrors.MediaError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, apperrors.MediaUploadFailed, merr.Kind)
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	id, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = s.Begin(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, s.Complete(ctx, "k", "plant-1"))
	id, err = s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "plant-1", id)

	now = now.Add(IdempotencyTTL + time.Second)
	id, err = s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, id, "expired keys can be claimed again")
}

func TestMemoryIdempotencyStore_DropsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k-%d", i)
		_, err := s.Begin(ctx, key)
		require.NoError(t, err)
		require.NoError(t, s.Complete(ctx, key, "plant"))
	}
	assert.Len(t, s.records, 50)

	now = now.Add(IdempotencyTTL)
	_, err := s.Begin(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, s.records, 1)
	assert.Contains(t, s.records, "fresh")
}
