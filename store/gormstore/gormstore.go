// Package gormstore persists the collections with gorm (MySQL or SQLite).
//
// Writes never open a transaction. Album set updates are read-modify-write cycles guarded by
// Album.Version, so each one stays atomic for its own row.
package gormstore

import (
	"context"
	"time"

	"picshelf/models"
	"picshelf/store"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Number of attempts for a version-guarded update before giving up with store.ErrConflict
const maxUpdateAttempts = 8

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Owners() store.Owners { return &owners{db: s.db} }
func (s *Store) Albums() store.Albums { return &albums{db: s.db} }
func (s *Store) Images() store.Images { return &images{db: s.db} }

func wrap(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(store.ErrDuplicate, msg)
	}
	return errors.Wrap(err, msg)
}

//
// Owners
//

type owners struct {
	db *gorm.DB
}

func (o *owners) Get(ctx context.Context, id models.ID) (*models.Owner, error) {
	owner := models.Owner{}
	if err := o.db.WithContext(ctx).First(&owner, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get owner")
	}
	return &owner, nil
}

func (o *owners) Upsert(ctx context.Context, externalID, email, name string) (*models.Owner, error) {
	owner := models.Owner{ExternalID: externalID, Email: email, Name: name}
	err := o.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(&owner).Error
	if err != nil {
		return nil, wrap(err, "upsert owner")
	}
	// On conflict the generated id was not used, reload by the unique key
	stored := models.Owner{}
	if err = o.db.WithContext(ctx).First(&stored, "external_id = ?", externalID).Error; err != nil {
		return nil, wrap(err, "reload owner")
	}
	return &stored, nil
}

func (o *owners) List(ctx context.Context) ([]*models.Owner, error) {
	result := []*models.Owner{}
	if err := o.db.WithContext(ctx).Order("created_at DESC").Find(&result).Error; err != nil {
		return nil, wrap(err, "list owners")
	}
	return result, nil
}

//
// Albums
//

type albums struct {
	db *gorm.DB
}

func (a *albums) Get(ctx context.Context, id models.ID) (*models.Album, error) {
	album := models.Album{}
	if err := a.db.WithContext(ctx).First(&album, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get album")
	}
	return &album, nil
}

func (a *albums) Create(ctx context.Context, album *models.Album) error {
	if album.ImageIDs == nil {
		album.ImageIDs = models.IDSet{}
	}
	if album.SharedWith == nil {
		album.SharedWith = models.StringSet{}
	}
	return wrap(a.db.WithContext(ctx).Create(album).Error, "create album")
}

func (a *albums) Find(ctx context.Context, f store.AlbumFilter) ([]*models.Album, error) {
	tx := a.db.WithContext(ctx).Model(&models.Album{})
	if f.ID != nil {
		tx = tx.Where("id = ?", *f.ID)
	}
	// Shared recipients live in a JSON column, they are matched in Go below
	if f.OwnerID != nil && !f.IncludeShared {
		tx = tx.Where("owner_id = ?", *f.OwnerID)
	}
	candidates := []*models.Album{}
	if err := tx.Order("created_at DESC").Find(&candidates).Error; err != nil {
		return nil, wrap(err, "find albums")
	}
	result := []*models.Album{}
	for _, album := range candidates {
		if f.Matches(album) {
			result = append(result, album)
		}
	}
	return result, nil
}

// modify re-reads the album and writes it back only if nobody else wrote in between
func (a *albums) modify(ctx context.Context, id models.ID, fn func(*models.Album)) (*models.Album, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		album, err := a.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		version := album.Version
		fn(album)
		album.Version = version + 1
		album.UpdatedAt = time.Now().Unix()
		result := a.db.WithContext(ctx).
			Model(&models.Album{}).
			Where("id = ? AND version = ?", id, version).
			Select("name", "description", "image_ids", "shared_with", "version", "updated_at").
			Updates(album)
		if result.Error != nil {
			return nil, wrap(result.Error, "update album")
		}
		if result.RowsAffected == 1 {
			return album, nil
		}
	}
	return nil, errors.Wrapf(store.ErrConflict, "album %s", id)
}

func (a *albums) Update(ctx context.Context, id models.ID, p store.AlbumPatch) (*models.Album, error) {
	return a.modify(ctx, id, p.Apply)
}

func (a *albums) AddImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	return a.modify(ctx, id, func(album *models.Album) { album.ImageIDs.Add(imageID) })
}

func (a *albums) PullImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	return a.modify(ctx, id, func(album *models.Album) { album.ImageIDs.Remove(imageID) })
}

func (a *albums) Delete(ctx context.Context, id models.ID) (*models.Album, error) {
	album, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := a.db.WithContext(ctx).Delete(&models.Album{}, "id = ?", id)
	if result.Error != nil {
		return nil, wrap(result.Error, "delete album")
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return album, nil
}

//
// Images
//

type images struct {
	db *gorm.DB
}

func (i *images) Get(ctx context.Context, id models.ID) (*models.Image, error) {
	image := models.Image{}
	if err := i.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get image")
	}
	return &image, nil
}

func (i *images) Create(ctx context.Context, image *models.Image) error {
	return wrap(i.db.WithContext(ctx).Create(image).Error, "create image")
}

func (i *images) query(ctx context.Context, f store.ImageFilter) *gorm.DB {
	tx := i.db.WithContext(ctx).Model(&models.Image{})
	if f.AlbumID != nil {
		tx = tx.Where("album_id = ?", *f.AlbumID)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			tx = tx.Where("1 = 0")
		} else {
			tx = tx.Where("id IN ?", f.IDs)
		}
	}
	if f.Favourite != nil {
		tx = tx.Where("favourite = ?", *f.Favourite)
	}
	return tx
}

func (i *images) Find(ctx context.Context, f store.ImageFilter) ([]*models.Image, error) {
	candidates := []*models.Image{}
	if err := i.query(ctx, f).Order("created_at ASC").Find(&candidates).Error; err != nil {
		return nil, wrap(err, "find images")
	}
	if len(f.AnyTags) == 0 {
		return candidates, nil
	}
	// Tags live in a JSON column, match-any is applied here
	result := []*models.Image{}
	for _, image := range candidates {
		if f.Matches(image) {
			result = append(result, image)
		}
	}
	return result, nil
}

func (i *images) Update(ctx context.Context, id models.ID, p store.ImagePatch) (*models.Image, error) {
	image, err := i.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(image)
	image.UpdatedAt = time.Now().Unix()
	result := i.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ?", id).
		Select("tags", "persons", "favourite", "comments", "updated_at").
		Updates(image)
	if result.Error != nil {
		return nil, wrap(result.Error, "update image")
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return image, nil
}

func (i *images) Delete(ctx context.Context, id models.ID) (*models.Image, error) {
	image, err := i.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := i.db.WithContext(ctx).Delete(&models.Image{}, "id = ?", id)
	if result.Error != nil {
		return nil, wrap(result.Error, "delete image")
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return image, nil
}

func (i *images) DeleteMany(ctx context.Context, f store.ImageFilter) (store.DeleteResult, error) {
	if len(f.AnyTags) > 0 {
		// Tag matching cannot be expressed in SQL here, resolve the ids first
		found, err := i.Find(ctx, f)
		if err != nil {
			return store.DeleteResult{}, err
		}
		ids := make([]models.ID, 0, len(found))
		for _, image := range found {
			ids = append(ids, image.ID)
		}
		f = store.ImageFilter{IDs: ids}
	}
	result := i.query(ctx, f).Delete(&models.Image{})
	if result.Error != nil {
		return store.DeleteResult{}, wrap(result.Error, "delete images")
	}
	return store.DeleteResult{Acknowledged: true, Deleted: result.RowsAffected}, nil
}
