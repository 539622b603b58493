// Package query serves the read-only projections of the catalog.
package query

import (
	"context"
	"sort"

	"picshelf/models"
	"picshelf/store"

	"github.com/pkg/errors"
)

type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// ImageRef is the minimal image projection embedded in album listings
type ImageRef struct {
	ID         models.ID `json:"id"`
	StorageRef string    `json:"storage_ref"`
}

type AlbumView struct {
	ID          models.ID        `json:"id"`
	OwnerID     models.ID        `json:"owner_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	SharedWith  models.StringSet `json:"shared_with"`
	Images      []ImageRef       `json:"images"`
	CreatedAt   int64            `json:"created_at"`
	UpdatedAt   int64            `json:"updated_at"`
}

func (q *Service) AllImages(ctx context.Context) ([]*models.Image, error) {
	images, err := q.store.Images().Find(ctx, store.ImageFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "listing images")
	}
	return newestFirst(images), nil
}

func (q *Service) FavouriteImages(ctx context.Context) ([]*models.Image, error) {
	favourite := true
	images, err := q.store.Images().Find(ctx, store.ImageFilter{Favourite: &favourite})
	if err != nil {
		return nil, errors.Wrap(err, "listing favourite images")
	}
	return newestFirst(images), nil
}

// Image returns store.ErrNotFound (wrapped) for unknown ids
func (q *Service) Image(ctx context.Context, id models.ID) (*models.Image, error) {
	image, err := q.store.Images().Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", id)
	}
	return image, nil
}

// AlbumImages lists the album members, in album order. With tags set only images carrying at
// least one of them are returned. Images whose back-reference disagrees with the album are skipped.
func (q *Service) AlbumImages(ctx context.Context, albumID models.ID, tags []string) ([]*models.Image, error) {
	album, err := q.store.Albums().Get(ctx, albumID)
	if err != nil {
		return nil, errors.Wrapf(err, "album %s", albumID)
	}
	filter := store.ImageFilter{
		AlbumID: &albumID,
		IDs:     append([]models.ID{}, album.ImageIDs...),
		AnyTags: tags,
	}
	found, err := q.store.Images().Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "images of album %s", albumID)
	}
	byID := make(map[models.ID]*models.Image, len(found))
	for _, image := range found {
		byID[image.ID] = image
	}
	result := make([]*models.Image, 0, len(found))
	for _, id := range album.ImageIDs {
		if image, ok := byID[id]; ok {
			result = append(result, image)
		}
	}
	return result, nil
}

// Albums lists every album with its images expanded to ImageRef
func (q *Service) Albums(ctx context.Context) ([]AlbumView, error) {
	return q.albums(ctx, store.AlbumFilter{})
}

// AlbumsFor lists the albums owned by owner or shared with its email
func (q *Service) AlbumsFor(ctx context.Context, owner *models.Owner) ([]AlbumView, error) {
	return q.albums(ctx, store.AlbumFilter{OwnerID: &owner.ID, SharedWith: owner.Email, IncludeShared: true})
}

func (q *Service) albums(ctx context.Context, f store.AlbumFilter) ([]AlbumView, error) {
	albums, err := q.store.Albums().Find(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "listing albums")
	}
	sort.SliceStable(albums, func(i, j int) bool { return albums[i].CreatedAt > albums[j].CreatedAt })

	ids := []models.ID{}
	for _, a := range albums {
		ids = append(ids, a.ImageIDs...)
	}
	images, err := q.store.Images().Find(ctx, store.ImageFilter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "expanding album images")
	}
	refs := make(map[models.ID]*models.Image, len(images))
	for _, image := range images {
		refs[image.ID] = image
	}

	result := make([]AlbumView, 0, len(albums))
	for _, a := range albums {
		view := AlbumView{
			ID:          a.ID,
			OwnerID:     a.OwnerID,
			Name:        a.Name,
			Description: a.Description,
			SharedWith:  a.SharedWith,
			Images:      []ImageRef{},
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		}
		if view.SharedWith == nil {
			view.SharedWith = models.StringSet{}
		}
		for _, id := range a.ImageIDs {
			if image, ok := refs[id]; ok && image.AlbumID == a.ID {
				view.Images = append(view.Images, ImageRef{ID: image.ID, StorageRef: image.StorageRef})
			}
		}
		result = append(result, view)
	}
	return result, nil
}

func (q *Service) Owners(ctx context.Context) ([]*models.Owner, error) {
	owners, err := q.store.Owners().List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing owners")
	}
	return owners, nil
}

func newestFirst(images []*models.Image) []*models.Image {
	sort.SliceStable(images, func(i, j int) bool { return images[i].CreatedAt > images[j].CreatedAt })
	return images
}
