// Package memstore keeps the collections in process memory. It is used for development
// (DB_DRIVER=memory) and as the base store of the integrity tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"picshelf/models"
	"picshelf/store"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// document guards one stored value. A removed document is marked gone so that
// holders of a stale pointer cannot write to it.
type document[T any] struct {
	mu   sync.Mutex
	val  T
	gone bool
}

type collection[T any] struct {
	docs  cmap.ConcurrentMap[string, *document[T]]
	clone func(T) T
}

func newCollection[T any](clone func(T) T) *collection[T] {
	return &collection[T]{docs: cmap.New[*document[T]](), clone: clone}
}

func (c *collection[T]) get(id models.ID) (T, error) {
	var zero T
	doc, ok := c.docs.Get(id.String())
	if !ok {
		return zero, store.ErrNotFound
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.gone {
		return zero, store.ErrNotFound
	}
	return c.clone(doc.val), nil
}

func (c *collection[T]) insert(id models.ID, val T) error {
	if !c.docs.SetIfAbsent(id.String(), &document[T]{val: c.clone(val)}) {
		return store.ErrDuplicate
	}
	return nil
}

// modify applies fn to the document while holding its lock
func (c *collection[T]) modify(id models.ID, fn func(T) T) (T, error) {
	var zero T
	doc, ok := c.docs.Get(id.String())
	if !ok {
		return zero, store.ErrNotFound
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.gone {
		return zero, store.ErrNotFound
	}
	doc.val = fn(c.clone(doc.val))
	return c.clone(doc.val), nil
}

func (c *collection[T]) remove(id models.ID) (T, error) {
	var zero T
	doc, ok := c.docs.Get(id.String())
	if !ok {
		return zero, store.ErrNotFound
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.gone {
		return zero, store.ErrNotFound
	}
	doc.gone = true
	c.docs.RemoveCb(id.String(), func(key string, v *document[T], exists bool) bool {
		return exists && v == doc
	})
	return doc.val, nil
}

func (c *collection[T]) all() []T {
	result := []T{}
	for item := range c.docs.IterBuffered() {
		doc := item.Val
		doc.mu.Lock()
		if !doc.gone {
			result = append(result, c.clone(doc.val))
		}
		doc.mu.Unlock()
	}
	return result
}

type Store struct {
	owners *owners
	albums *albums
	images *images
}

func New() *Store {
	return &Store{
		owners: &owners{
			docs:       newCollection(func(o *models.Owner) *models.Owner { c := *o; return &c }),
			byExternal: cmap.New[models.ID](),
		},
		albums: &albums{docs: newCollection((*models.Album).Clone)},
		images: &images{docs: newCollection((*models.Image).Clone)},
	}
}

func (s *Store) Owners() store.Owners { return s.owners }
func (s *Store) Albums() store.Albums { return s.albums }
func (s *Store) Images() store.Images { return s.images }

func now() int64 {
	return time.Now().Unix()
}

//
// Owners
//

type owners struct {
	docs       *collection[*models.Owner]
	byExternal cmap.ConcurrentMap[string, models.ID]
	mu         sync.Mutex // serializes Upsert so ExternalID stays unique
}

func (o *owners) Get(ctx context.Context, id models.ID) (*models.Owner, error) {
	return o.docs.get(id)
}

func (o *owners) Upsert(ctx context.Context, externalID, email, name string) (*models.Owner, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.byExternal.Get(externalID); ok {
		return o.docs.modify(id, func(owner *models.Owner) *models.Owner {
			owner.Email = email
			owner.Name = name
			owner.UpdatedAt = now()
			return owner
		})
	}
	owner := &models.Owner{ID: models.NewID(), ExternalID: externalID, Email: email, Name: name, CreatedAt: now(), UpdatedAt: now()}
	if err := o.docs.insert(owner.ID, owner); err != nil {
		return nil, err
	}
	o.byExternal.Set(externalID, owner.ID)
	return owner, nil
}

func (o *owners) List(ctx context.Context) ([]*models.Owner, error) {
	result := o.docs.all()
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt > result[j].CreatedAt })
	return result, nil
}

//
// Albums
//

type albums struct {
	docs *collection[*models.Album]
}

func (a *albums) Get(ctx context.Context, id models.ID) (*models.Album, error) {
	return a.docs.get(id)
}

func (a *albums) Create(ctx context.Context, album *models.Album) error {
	if album.ID == models.NilID {
		album.ID = models.NewID()
	}
	if album.CreatedAt == 0 {
		album.CreatedAt = now()
	}
	album.UpdatedAt = now()
	return a.docs.insert(album.ID, album)
}

func (a *albums) Find(ctx context.Context, f store.AlbumFilter) ([]*models.Album, error) {
	result := []*models.Album{}
	for _, album := range a.docs.all() {
		if f.Matches(album) {
			result = append(result, album)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt > result[j].CreatedAt })
	return result, nil
}

func (a *albums) update(id models.ID, fn func(*models.Album)) (*models.Album, error) {
	return a.docs.modify(id, func(album *models.Album) *models.Album {
		fn(album)
		album.Version++
		album.UpdatedAt = now()
		return album
	})
}

func (a *albums) Update(ctx context.Context, id models.ID, p store.AlbumPatch) (*models.Album, error) {
	return a.update(id, p.Apply)
}

func (a *albums) AddImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	return a.update(id, func(album *models.Album) { album.ImageIDs.Add(imageID) })
}

func (a *albums) PullImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	return a.update(id, func(album *models.Album) { album.ImageIDs.Remove(imageID) })
}

func (a *albums) Delete(ctx context.Context, id models.ID) (*models.Album, error) {
	return a.docs.remove(id)
}

//
// Images
//

type images struct {
	docs *collection[*models.Image]
}

func (i *images) Get(ctx context.Context, id models.ID) (*models.Image, error) {
	return i.docs.get(id)
}

func (i *images) Create(ctx context.Context, image *models.Image) error {
	if image.ID == models.NilID {
		image.ID = models.NewID()
	}
	if image.CreatedAt == 0 {
		image.CreatedAt = now()
	}
	image.UpdatedAt = now()
	return i.docs.insert(image.ID, image)
}

func (i *images) Find(ctx context.Context, f store.ImageFilter) ([]*models.Image, error) {
	result := []*models.Image{}
	for _, image := range i.docs.all() {
		if f.Matches(image) {
			result = append(result, image)
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt < result[b].CreatedAt })
	return result, nil
}

func (i *images) Update(ctx context.Context, id models.ID, p store.ImagePatch) (*models.Image, error) {
	return i.docs.modify(id, func(image *models.Image) *models.Image {
		p.Apply(image)
		image.UpdatedAt = now()
		return image
	})
}

func (i *images) Delete(ctx context.Context, id models.ID) (*models.Image, error) {
	return i.docs.remove(id)
}

func (i *images) DeleteMany(ctx context.Context, f store.ImageFilter) (store.DeleteResult, error) {
	result := store.DeleteResult{Acknowledged: true}
	for _, image := range i.docs.all() {
		if !f.Matches(image) {
			continue
		}
		if _, err := i.docs.remove(image.ID); err == nil {
			result.Deleted++
		}
	}
	return result, nil
}
