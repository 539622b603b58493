package memstore

import (
	"context"
	"sync"
	"testing"

	"picshelf/models"
	"picshelf/store"
	"picshelf/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestAlbums_ConcurrentAddImage(t *testing.T) {
	s := New()
	ctx := context.Background()
	album := &models.Album{OwnerID: models.NewID(), Name: "Trip"}
	require.NoError(t, s.Albums().Create(ctx, album))

	ids := make([]models.ID, 50)
	for i := range ids {
		ids[i] = models.NewID()
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		for n := 0; n < 2; n++ {
			wg.Add(1)
			go func(id models.ID) {
				defer wg.Done()
				_, err := s.Albums().AddImage(ctx, album.ID, id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	got, err := s.Albums().Get(ctx, album.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, []models.ID(got.ImageIDs))
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	album := &models.Album{OwnerID: models.NewID(), Name: "Trip"}
	require.NoError(t, s.Albums().Create(ctx, album))

	got, err := s.Albums().Get(ctx, album.ID)
	require.NoError(t, err)
	got.ImageIDs.Add(models.NewID())
	got.Name = "changed"

	again, err := s.Albums().Get(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", again.Name)
	assert.Empty(t, again.ImageIDs)
}

func TestCreate_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	image := &models.Image{AlbumID: models.NewID(), StorageRef: "ref"}
	require.NoError(t, s.Images().Create(ctx, image))
	assert.ErrorIs(t, s.Images().Create(ctx, image), store.ErrDuplicate)
}
