package integrity

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"picshelf/models"
	"picshelf/store"
)

// ImageUpload is the metadata and content of a new image
type ImageUpload struct {
	Name      string
	MimeType  string
	Tags      []string
	Persons   []string
	Favourite bool
	Comments  []string
	Content   []byte
}

// Allowed upload types. Anything else under image/ is refused too.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// AddImage stores the content, creates the Image and links it into the album. If the link cannot
// be written the Image is deleted again so the album never silently misses one of its images.
func (s *Service) AddImage(ctx context.Context, albumID models.ID, in ImageUpload) (*models.Image, *models.Album, error) {
	const op = "addImage"
	if len(in.Content) == 0 {
		return nil, nil, newError(op, InvalidInput, "image content is empty")
	}
	mimeType := in.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(in.Content)
	}
	if mimeType, _, _ = strings.Cut(mimeType, ";"); !allowedMimeTypes[mimeType] {
		return nil, nil, newError(op, InvalidInput, "file type %q is not allowed", mimeType)
	}

	var (
		reference string
		image     *models.Image
		album     *models.Album
	)
	sg := s.newSaga(op, map[string]models.ID{"album_id": albumID})
	sg.steps = []step{
		{
			name:  "verify album",
			fails: Internal,
			do: func(ctx context.Context) error {
				_, err := s.getAlbum(ctx, op, albumID)
				return err
			},
		},
		{
			name:  "upload",
			fails: UploadFailed,
			do: func(ctx context.Context) error {
				obj, err := s.objects.Put(ctx, in.Name, bytes.NewReader(in.Content))
				if err != nil {
					return err
				}
				reference = obj.Reference
				image = &models.Image{
					ID:         models.NewID(),
					AlbumID:    albumID,
					Name:       models.SanitizeName(in.Name),
					MimeType:   mimeType,
					StorageRef: obj.Reference,
					Size:       obj.Size,
					Tags:       models.NewStringSet(in.Tags...),
					Persons:    models.NewStringSet(in.Persons...),
					Favourite:  in.Favourite,
					Comments:   append(models.StringList{}, in.Comments...),
				}
				return nil
			},
			undo: func(ctx context.Context) error {
				return s.objects.Delete(ctx, reference)
			},
			bestEffort: true,
		},
		{
			name:  "create image",
			fails: UpdateFailed,
			do: func(ctx context.Context) error {
				return s.store.Images().Create(ctx, image)
			},
			undo: func(ctx context.Context) error {
				_, err := s.store.Images().Delete(ctx, image.ID)
				if store.IsNotFound(err) {
					return nil
				}
				return err
			},
		},
		{
			name:  "link image",
			fails: UpdateFailed,
			do: func(ctx context.Context) (err error) {
				album, err = s.store.Albums().AddImage(ctx, albumID, image.ID)
				return err
			},
		},
	}
	if err := sg.run(ctx); err != nil {
		return nil, nil, err
	}
	return image, album, nil
}

// DeleteImage removes the Image and unlinks it from the album. Only the album owner may do this.
// If the unlink fails the Image is recreated from the snapshot taken before the delete.
func (s *Service) DeleteImage(ctx context.Context, albumID, imageID, requester models.ID) (*models.Image, error) {
	const op = "deleteImage"
	album, err := s.getAlbum(ctx, op, albumID)
	if err != nil {
		return nil, err
	}
	if _, err = s.getOwner(ctx, op, requester); err != nil {
		return nil, err
	}
	snapshot, err := s.store.Images().Get(ctx, imageID)
	switch {
	case store.IsNotFound(err):
		// Image already gone: only a dangling link left by an earlier attempt is worth cleaning up
		if !album.ImageIDs.Contains(imageID) {
			return nil, newError(op, NotFound, "image %s not found", imageID)
		}
		snapshot = nil
	case err != nil:
		return nil, &Error{Op: op, Kind: Internal, Err: err}
	case snapshot.AlbumID != albumID:
		return nil, newError(op, NotFound, "image %s not found in album %s", imageID, albumID)
	}
	if !album.IsOwnedBy(requester) {
		return nil, newError(op, Forbidden, "album %s is not owned by %s", albumID, requester)
	}

	sg := s.newSaga(op, map[string]models.ID{"album_id": albumID, "image_id": imageID, "owner_id": requester})
	if snapshot != nil {
		deleted := false
		sg.steps = append(sg.steps, step{
			name:  "delete image",
			fails: Internal,
			do: func(ctx context.Context) error {
				_, err := s.store.Images().Delete(ctx, imageID)
				if store.IsNotFound(err) {
					return nil
				}
				deleted = err == nil
				return err
			},
			undo: func(ctx context.Context) error {
				if !deleted {
					return nil
				}
				return s.store.Images().Create(ctx, snapshot.Clone())
			},
		})
	}
	sg.steps = append(sg.steps, step{
		name:  "unlink image",
		fails: UpdateFailed,
		do: func(ctx context.Context) error {
			_, err := s.store.Albums().PullImage(ctx, albumID, imageID)
			if store.IsNotFound(err) {
				// A concurrent album delete took the set away, there is nothing left to unlink from
				s.log.Warn().Str("album_id", albumID.String()).Str("image_id", imageID.String()).Msg("album gone before unlink")
				return nil
			}
			return err
		},
	})
	if err = sg.run(ctx); err != nil {
		return nil, err
	}
	if snapshot != nil {
		s.deleteObjects(ctx, snapshot.StorageRef)
	}
	return snapshot, nil
}

// UpdateImage applies a partial update. The image must be linked to albumID both ways.
func (s *Service) UpdateImage(ctx context.Context, albumID, imageID models.ID, patch store.ImagePatch) (*models.Image, error) {
	const op = "updateImage"
	if patch.IsEmpty() {
		return nil, newError(op, InvalidInput, "nothing to update")
	}
	album, err := s.getAlbum(ctx, op, albumID)
	if err != nil {
		return nil, err
	}
	image, err := s.store.Images().Get(ctx, imageID)
	if err != nil {
		return nil, classify(op, "image", err)
	}
	if image.AlbumID != albumID || !album.ImageIDs.Contains(imageID) {
		return nil, newError(op, NotFound, "image %s not found in album %s", imageID, albumID)
	}
	updated, err := s.store.Images().Update(ctx, imageID, patch)
	if err != nil {
		return nil, classify(op, "image", err)
	}
	return updated, nil
}
