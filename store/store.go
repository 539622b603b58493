// Package store defines the document collections the catalog persists to.
//
// Every operation is atomic for a single document only. Nothing here spans collections: keeping
// Albums and Images consistent with each other is the job of the integrity package.
package store

import (
	"context"
	"errors"

	"picshelf/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
	// ErrConflict is returned when a single-document update kept losing the version race
	ErrConflict = errors.New("concurrent update conflict")
)

// Store exposes the three collections. Implementations live under store/<driver>/.
type Store interface {
	Owners() Owners
	Albums() Albums
	Images() Images
}

type Owners interface {
	Get(ctx context.Context, id models.ID) (*models.Owner, error)
	// Upsert creates the owner for externalID or refreshes its email and name
	Upsert(ctx context.Context, externalID, email, name string) (*models.Owner, error)
	List(ctx context.Context) ([]*models.Owner, error)
}

type Albums interface {
	Get(ctx context.Context, id models.ID) (*models.Album, error)
	// Create inserts a as is when a.ID is set (used to restore snapshots), otherwise assigns an id
	Create(ctx context.Context, a *models.Album) error
	Find(ctx context.Context, f AlbumFilter) ([]*models.Album, error)
	Update(ctx context.Context, id models.ID, p AlbumPatch) (*models.Album, error)
	// AddImage has add-to-set semantics
	AddImage(ctx context.Context, id, imageID models.ID) (*models.Album, error)
	// PullImage removes imageID; absent ids are a no-op
	PullImage(ctx context.Context, id, imageID models.ID) (*models.Album, error)
	Delete(ctx context.Context, id models.ID) (*models.Album, error)
}

type Images interface {
	Get(ctx context.Context, id models.ID) (*models.Image, error)
	Create(ctx context.Context, i *models.Image) error
	Find(ctx context.Context, f ImageFilter) ([]*models.Image, error)
	Update(ctx context.Context, id models.ID, p ImagePatch) (*models.Image, error)
	Delete(ctx context.Context, id models.ID) (*models.Image, error)
	DeleteMany(ctx context.Context, f ImageFilter) (DeleteResult, error)
}

type DeleteResult struct {
	Acknowledged bool
	Deleted      int64
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
