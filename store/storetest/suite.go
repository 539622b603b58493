// Package storetest is a compliance suite shared by the store drivers.
package storetest

import (
	"context"
	"testing"

	"picshelf/models"
	"picshelf/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a store.Store implementation. makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Run("Owners", func(t *testing.T) { testOwners(t, makeStore(t)) })
	t.Run("Albums", func(t *testing.T) { testAlbums(t, makeStore(t)) })
	t.Run("Images", func(t *testing.T) { testImages(t, makeStore(t)) })
}

func testOwners(t *testing.T, s store.Store) {
	ctx := context.Background()

	first, err := s.Owners().Upsert(ctx, "google-1", "a@example.com", "A")
	require.NoError(t, err)
	require.NotEqual(t, models.NilID, first.ID)

	// Same external id refreshes the record instead of creating a second owner
	second, err := s.Owners().Upsert(ctx, "google-1", "a2@example.com", "A2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a2@example.com", second.Email)

	_, err = s.Owners().Upsert(ctx, "google-2", "b@example.com", "B")
	require.NoError(t, err)

	got, err := s.Owners().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)

	all, err := s.Owners().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.Owners().Get(ctx, models.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testAlbums(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := models.NewID()
	other := models.NewID()

	album := &models.Album{OwnerID: owner, Name: "Trip"}
	require.NoError(t, s.Albums().Create(ctx, album))
	require.NotEqual(t, models.NilID, album.ID)
	require.NoError(t, s.Albums().Create(ctx, &models.Album{OwnerID: other, Name: "Other", SharedWith: models.NewStringSet("a@example.com")}))

	got, err := s.Albums().Get(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Name)
	assert.Equal(t, owner, got.OwnerID)

	found, err := s.Albums().Find(ctx, store.AlbumFilter{ID: &album.ID, OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = s.Albums().Find(ctx, store.AlbumFilter{ID: &album.ID, OwnerID: &other})
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = s.Albums().Find(ctx, store.AlbumFilter{OwnerID: &owner, SharedWith: "a@example.com", IncludeShared: true})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	imageID := models.NewID()
	updated, err := s.Albums().AddImage(ctx, album.ID, imageID)
	require.NoError(t, err)
	assert.Equal(t, models.IDSet{imageID}, updated.ImageIDs)
	updated, err = s.Albums().AddImage(ctx, album.ID, imageID)
	require.NoError(t, err)
	assert.Equal(t, models.IDSet{imageID}, updated.ImageIDs, "add-to-set must not duplicate")

	name := "Trip 2"
	updated, err = s.Albums().Update(ctx, album.ID, store.AlbumPatch{Name: &name, AddSharedWith: []string{"b@example.com", "b@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "Trip 2", updated.Name)
	assert.Equal(t, models.StringSet{"b@example.com"}, updated.SharedWith)
	assert.Equal(t, models.IDSet{imageID}, updated.ImageIDs)

	updated, err = s.Albums().PullImage(ctx, album.ID, imageID)
	require.NoError(t, err)
	assert.Empty(t, updated.ImageIDs)
	_, err = s.Albums().PullImage(ctx, album.ID, imageID)
	require.NoError(t, err, "pull of an absent id is a no-op")

	_, err = s.Albums().AddImage(ctx, models.NewID(), imageID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.Albums().Delete(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, album.ID, deleted.ID)
	_, err = s.Albums().Get(ctx, album.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Albums().Delete(ctx, album.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Restoring a snapshot keeps its id
	require.NoError(t, s.Albums().Create(ctx, deleted))
	restored, err := s.Albums().Get(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip 2", restored.Name)
}

func testImages(t *testing.T, s store.Store) {
	ctx := context.Background()
	albumA, albumB := models.NewID(), models.NewID()

	beach := &models.Image{AlbumID: albumA, StorageRef: "ref-1", Size: 10, Tags: models.NewStringSet("beach")}
	city := &models.Image{AlbumID: albumA, StorageRef: "ref-2", Size: 20, Tags: models.NewStringSet("city"), Favourite: true}
	other := &models.Image{AlbumID: albumB, StorageRef: "ref-3", Size: 30}
	for _, image := range []*models.Image{beach, city, other} {
		require.NoError(t, s.Images().Create(ctx, image))
		require.NotEqual(t, models.NilID, image.ID)
	}

	got, err := s.Images().Get(ctx, beach.ID)
	require.NoError(t, err)
	assert.Equal(t, albumA, got.AlbumID)
	assert.Equal(t, models.StringSet{"beach"}, got.Tags)

	byAlbum, err := s.Images().Find(ctx, store.ImageFilter{AlbumID: &albumA})
	require.NoError(t, err)
	assert.Len(t, byAlbum, 2)

	byTags, err := s.Images().Find(ctx, store.ImageFilter{AlbumID: &albumA, AnyTags: []string{"beach", "sunset"}})
	require.NoError(t, err)
	require.Len(t, byTags, 1)
	assert.Equal(t, beach.ID, byTags[0].ID)

	fav := true
	favs, err := s.Images().Find(ctx, store.ImageFilter{Favourite: &fav})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, city.ID, favs[0].ID)

	none, err := s.Images().Find(ctx, store.ImageFilter{IDs: []models.ID{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	tags := []string{"beach", "sea"}
	updated, err := s.Images().Update(ctx, beach.ID, store.ImagePatch{Tags: &tags, Favourite: &fav, AppendComments: []string{"nice"}})
	require.NoError(t, err)
	assert.Equal(t, models.StringSet{"beach", "sea"}, updated.Tags)
	assert.True(t, updated.Favourite)
	assert.Equal(t, models.StringList{"nice"}, updated.Comments)
	assert.Equal(t, albumA, updated.AlbumID)

	deleted, err := s.Images().Delete(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "ref-3", deleted.StorageRef)
	_, err = s.Images().Delete(ctx, other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	result, err := s.Images().DeleteMany(ctx, store.ImageFilter{AlbumID: &albumA})
	require.NoError(t, err)
	assert.True(t, result.Acknowledged)
	assert.Equal(t, int64(2), result.Deleted)
	left, err := s.Images().Find(ctx, store.ImageFilter{AlbumID: &albumA})
	require.NoError(t, err)
	assert.Empty(t, left)
}
