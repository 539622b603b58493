package integrity

import (
	"context"

	"picshelf/models"
	"picshelf/storage"
	"picshelf/store"

	"github.com/rs/zerolog"
)

type Service struct {
	store   store.Store
	objects storage.ObjectStore
	log     zerolog.Logger
}

func New(s store.Store, objects storage.ObjectStore, log zerolog.Logger) *Service {
	return &Service{
		store:   s,
		objects: objects,
		log:     log.With().Str("component", "integrity").Logger(),
	}
}

func (s *Service) newSaga(op string, ids map[string]models.ID) *saga {
	log := s.log.With()
	for k, v := range ids {
		log = log.Str(k, v.String())
	}
	return &saga{op: op, log: log.Logger()}
}

// classify converts a failed single read into an engine error
func classify(op string, what string, err error) error {
	if store.IsNotFound(err) {
		return newError(op, NotFound, "%s not found", what)
	}
	return &Error{Op: op, Kind: Internal, Err: err}
}

func (s *Service) getAlbum(ctx context.Context, op string, id models.ID) (*models.Album, error) {
	album, err := s.store.Albums().Get(ctx, id)
	if err != nil {
		return nil, classify(op, "album", err)
	}
	return album, nil
}

func (s *Service) getOwner(ctx context.Context, op string, id models.ID) (*models.Owner, error) {
	owner, err := s.store.Owners().Get(ctx, id)
	if err != nil {
		return nil, classify(op, "owner", err)
	}
	return owner, nil
}

// ownedAlbum loads the album and checks that requester owns it
func (s *Service) ownedAlbum(ctx context.Context, op string, albumID, requester models.ID) (*models.Album, error) {
	album, err := s.getAlbum(ctx, op, albumID)
	if err != nil {
		return nil, err
	}
	if !album.IsOwnedBy(requester) {
		return nil, newError(op, Forbidden, "album %s is not owned by %s", albumID, requester)
	}
	return album, nil
}

// deleteObjects removes blobs that no document references anymore. Failures are only logged.
func (s *Service) deleteObjects(ctx context.Context, references ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range references {
		if err := s.objects.Delete(ctx, ref); err != nil {
			s.log.Warn().Err(err).Str("reference", ref).Msg("blob delete failed")
		}
	}
}
