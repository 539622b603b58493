package integrity

import (
	"context"
	"net/mail"
	"strings"

	"picshelf/models"
	"picshelf/store"
)

type AlbumInput struct {
	Name        string
	Description string
}

func (s *Service) CreateAlbum(ctx context.Context, ownerID models.ID, in AlbumInput) (*models.Album, error) {
	const op = "createAlbum"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(op, InvalidInput, "name is required")
	}
	if _, err := s.getOwner(ctx, op, ownerID); err != nil {
		return nil, err
	}
	album := &models.Album{
		OwnerID:     ownerID,
		Name:        name,
		Description: in.Description,
		ImageIDs:    models.IDSet{},
		SharedWith:  models.StringSet{},
	}
	if err := s.store.Albums().Create(ctx, album); err != nil {
		return nil, &Error{Op: op, Kind: Internal, Err: err}
	}
	return album, nil
}

func (s *Service) UpdateAlbum(ctx context.Context, albumID, requester models.ID, patch store.AlbumPatch) (*models.Album, error) {
	const op = "updateAlbum"
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, newError(op, InvalidInput, "name cannot be empty")
		}
		patch.Name = &name
	}
	// Sharing goes through ShareAlbum and its checks
	patch.AddSharedWith = nil
	if _, err := s.ownedAlbum(ctx, op, albumID, requester); err != nil {
		return nil, err
	}
	album, err := s.store.Albums().Update(ctx, albumID, patch)
	if err != nil {
		return nil, classify(op, "album", err)
	}
	return album, nil
}

// ShareAlbum adds recipients to the album. Sharing with the owner's own address is refused.
func (s *Service) ShareAlbum(ctx context.Context, albumID, requester models.ID, emails []string) (*models.Album, error) {
	const op = "shareAlbum"
	if len(emails) == 0 {
		return nil, newError(op, InvalidInput, "no recipients")
	}
	recipients := make([]string, 0, len(emails))
	for _, e := range emails {
		addr, err := mail.ParseAddress(strings.TrimSpace(e))
		if err != nil {
			return nil, newError(op, InvalidInput, "invalid email %q", e)
		}
		recipients = append(recipients, strings.ToLower(addr.Address))
	}
	if _, err := s.ownedAlbum(ctx, op, albumID, requester); err != nil {
		return nil, err
	}
	owner, err := s.getOwner(ctx, op, requester)
	if err != nil {
		return nil, err
	}
	for _, r := range recipients {
		if strings.EqualFold(r, owner.Email) {
			return nil, newError(op, InvalidInput, "cannot share an album with its owner")
		}
	}
	album, err := s.store.Albums().Update(ctx, albumID, store.AlbumPatch{AddSharedWith: recipients})
	if err != nil {
		return nil, classify(op, "album", err)
	}
	return album, nil
}

// DeleteAlbum deletes the album and then every image referencing it. If the image cleanup cannot
// be confirmed the album is recreated rather than leaving images that point at nothing.
func (s *Service) DeleteAlbum(ctx context.Context, albumID, requester models.ID) (*models.Album, error) {
	const op = "deleteAlbum"
	// Ownership is re-verified by query, not assumed from the request path
	matching, err := s.store.Albums().Find(ctx, store.AlbumFilter{ID: &albumID, OwnerID: &requester})
	if err != nil {
		return nil, &Error{Op: op, Kind: Internal, Err: err}
	}
	if len(matching) == 0 {
		if _, err = s.getAlbum(ctx, op, albumID); err != nil {
			return nil, err
		}
		return nil, newError(op, Forbidden, "album %s is not owned by %s", albumID, requester)
	}
	snapshot := matching[0]

	var members []*models.Image
	sg := s.newSaga(op, map[string]models.ID{"album_id": albumID, "owner_id": requester})
	sg.steps = []step{
		{
			name:  "collect images",
			fails: Internal,
			do: func(ctx context.Context) (err error) {
				members, err = s.store.Images().Find(ctx, store.ImageFilter{AlbumID: &albumID})
				return err
			},
		},
		{
			name:  "delete album",
			fails: Internal,
			do: func(ctx context.Context) error {
				_, err := s.store.Albums().Delete(ctx, albumID)
				if store.IsNotFound(err) {
					return newError(op, NotFound, "album %s not found", albumID)
				}
				return err
			},
			undo: func(ctx context.Context) error {
				return s.store.Albums().Create(ctx, s.restorable(ctx, snapshot))
			},
		},
		{
			name:  "delete images",
			fails: UpdateFailed,
			do: func(ctx context.Context) error {
				result, err := s.store.Images().DeleteMany(ctx, store.ImageFilter{AlbumID: &albumID})
				if err != nil {
					return err
				}
				if !result.Acknowledged {
					return newError(op, UpdateFailed, "image deletion not acknowledged (%d deleted)", result.Deleted)
				}
				return nil
			},
		},
	}
	if err = sg.run(ctx); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(members))
	for _, image := range members {
		refs = append(refs, image.StorageRef)
	}
	s.deleteObjects(ctx, refs...)
	return snapshot, nil
}

// restorable returns the album snapshot with its image set pruned to images that still exist,
// so the recreated album does not reference images a partial cascade already removed
func (s *Service) restorable(ctx context.Context, snapshot *models.Album) *models.Album {
	restore := snapshot.Clone()
	remaining, err := s.store.Images().Find(ctx, store.ImageFilter{AlbumID: &snapshot.ID})
	if err != nil {
		s.log.Warn().Err(err).Str("album_id", snapshot.ID.String()).Msg("restoring album with unverified image set")
		return restore
	}
	alive := models.IDSet{}
	for _, image := range remaining {
		if snapshot.ImageIDs.Contains(image.ID) {
			alive.Add(image.ID)
		}
	}
	restore.ImageIDs = alive
	return restore
}
