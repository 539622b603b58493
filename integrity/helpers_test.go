package integrity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"picshelf/models"
	"picshelf/storage"
	"picshelf/store"
	"picshelf/store/memstore"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps a memstore and fails selected operations, e.g. "albums.AddImage"
type faultyStore struct {
	base   store.Store
	mu     sync.Mutex
	faults map[string]error
	// before runs once ahead of the named operation, e.g. to simulate a concurrent writer
	before map[string]func()
	// partialDeleteMany makes DeleteMany remove one image and report no acknowledgement
	partialDeleteMany bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{base: memstore.New(), faults: map[string]error{}, before: map[string]func(){}}
}

func (s *faultyStore) fail(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = errInjected
}

func (s *faultyStore) runBefore(op string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before[op] = fn
}

func (s *faultyStore) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]error{}
	s.before = map[string]func(){}
	s.partialDeleteMany = false
}

func (s *faultyStore) check(op string) error {
	s.mu.Lock()
	fn := s.before[op]
	delete(s.before, op)
	err := s.faults[op]
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return err
}

func (s *faultyStore) Owners() store.Owners { return s.base.Owners() }
func (s *faultyStore) Albums() store.Albums { return &faultyAlbums{Albums: s.base.Albums(), s: s} }
func (s *faultyStore) Images() store.Images { return &faultyImages{Images: s.base.Images(), s: s} }

type faultyAlbums struct {
	store.Albums
	s *faultyStore
}

func (a *faultyAlbums) Create(ctx context.Context, album *models.Album) error {
	if err := a.s.check("albums.Create"); err != nil {
		return err
	}
	return a.Albums.Create(ctx, album)
}

func (a *faultyAlbums) Find(ctx context.Context, f store.AlbumFilter) ([]*models.Album, error) {
	if err := a.s.check("albums.Find"); err != nil {
		return nil, err
	}
	return a.Albums.Find(ctx, f)
}

func (a *faultyAlbums) AddImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	if err := a.s.check("albums.AddImage"); err != nil {
		return nil, err
	}
	return a.Albums.AddImage(ctx, id, imageID)
}

func (a *faultyAlbums) PullImage(ctx context.Context, id, imageID models.ID) (*models.Album, error) {
	if err := a.s.check("albums.PullImage"); err != nil {
		return nil, err
	}
	return a.Albums.PullImage(ctx, id, imageID)
}

func (a *faultyAlbums) Delete(ctx context.Context, id models.ID) (*models.Album, error) {
	if err := a.s.check("albums.Delete"); err != nil {
		return nil, err
	}
	return a.Albums.Delete(ctx, id)
}

type faultyImages struct {
	store.Images
	s *faultyStore
}

func (i *faultyImages) Create(ctx context.Context, image *models.Image) error {
	if err := i.s.check("images.Create"); err != nil {
		return err
	}
	return i.Images.Create(ctx, image)
}

func (i *faultyImages) Delete(ctx context.Context, id models.ID) (*models.Image, error) {
	if err := i.s.check("images.Delete"); err != nil {
		return nil, err
	}
	return i.Images.Delete(ctx, id)
}

func (i *faultyImages) DeleteMany(ctx context.Context, f store.ImageFilter) (store.DeleteResult, error) {
	if err := i.s.check("images.DeleteMany"); err != nil {
		return store.DeleteResult{}, err
	}
	i.s.mu.Lock()
	partial := i.s.partialDeleteMany
	i.s.mu.Unlock()
	if partial {
		found, err := i.Images.Find(ctx, f)
		if err != nil {
			return store.DeleteResult{}, err
		}
		result := store.DeleteResult{Acknowledged: false}
		if len(found) > 0 {
			if _, err = i.Images.Delete(ctx, found[0].ID); err == nil {
				result.Deleted = 1
			}
		}
		return result, nil
	}
	return i.Images.DeleteMany(ctx, f)
}

// fakeObjects is an in-memory storage.ObjectStore
type fakeObjects struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    bool
	failDelete bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(ctx context.Context, name string, reader io.Reader) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return storage.Object{}, errInjected
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return storage.Object{}, err
	}
	ref := "mem://" + models.NewID().String() + "/" + name
	f.objects[ref] = buf.Bytes()
	return storage.Object{Reference: ref, Size: n}, nil
}

func (f *fakeObjects) Load(ctx context.Context, reference string, writer io.Writer) (int64, error) {
	f.mu.Lock()
	content, ok := f.objects[reference]
	f.mu.Unlock()
	if !ok {
		return 0, storage.ErrUnknownReference
	}
	n, err := writer.Write(content)
	return int64(n), err
}

func (f *fakeObjects) Delete(ctx context.Context, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errInjected
	}
	delete(f.objects, reference)
	return nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fixture struct {
	ctx     context.Context
	store   *faultyStore
	objects *fakeObjects
	svc     *Service
	owner   *models.Owner
	album   *models.Album
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		store:   newFaultyStore(),
		objects: newFakeObjects(),
	}
	f.svc = New(f.store, f.objects, zerolog.Nop())
	var err error
	f.owner, err = f.store.Owners().Upsert(f.ctx, "google-owner", "owner@example.com", "Owner")
	require.NoError(t, err)
	f.album, err = f.svc.CreateAlbum(f.ctx, f.owner.ID, AlbumInput{Name: "Trip"})
	require.NoError(t, err)
	return f
}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func (f *fixture) upload(name string, tags ...string) ImageUpload {
	return ImageUpload{Name: name, Tags: tags, Content: jpegHeader}
}

func (f *fixture) addImage(t *testing.T, tags ...string) *models.Image {
	t.Helper()
	image, _, err := f.svc.AddImage(f.ctx, f.album.ID, f.upload("photo.jpg", tags...))
	require.NoError(t, err)
	return image
}

// assertConsistent checks that the album set and the image back-references agree in both directions
func (f *fixture) assertConsistent(t *testing.T, albumID models.ID) {
	t.Helper()
	ctx := context.Background()
	images, err := f.store.base.Images().Find(ctx, store.ImageFilter{AlbumID: &albumID})
	require.NoError(t, err)
	album, err := f.store.base.Albums().Get(ctx, albumID)
	if store.IsNotFound(err) {
		assert.Empty(t, images, "images reference a missing album")
		return
	}
	require.NoError(t, err)
	for _, id := range album.ImageIDs {
		image, err := f.store.base.Images().Get(ctx, id)
		if assert.NoError(t, err, "album references missing image %s", id) {
			assert.Equal(t, albumID, image.AlbumID)
		}
	}
	for _, image := range images {
		assert.True(t, album.ImageIDs.Contains(image.ID), "image %s is not linked from its album", image.ID)
	}
}
