package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"picshelf/auth"
	"picshelf/integrity"
	"picshelf/models"
	"picshelf/store"
	"picshelf/utils"

	"github.com/gin-gonic/gin"
)

const (
	uploadField      = "image"
	defaultThumbSize = 512
	maxThumbSize     = 2048
)

type ImageUploadForm struct {
	Name      string   `form:"name"`
	Tags      []string `form:"tags"`
	Persons   []string `form:"persons"`
	Favourite bool     `form:"favourite"`
	Comments  []string `form:"comments"`
}

type ImageUpdateRequest struct {
	Tags        *[]string `json:"tags"`
	Persons     *[]string `json:"persons"`
	Favourite   *bool     `json:"favourite"`
	Comments    *[]string `json:"comments"`
	AddComments []string  `json:"add_comments"`
}

type ImageThumbRequest struct {
	Size uint `form:"size"`
}

type ImageUploadResponse struct {
	Message string        `json:"message"`
	Image   *models.Image `json:"image"`
	Album   *models.Album `json:"album"`
}

// splitList accepts both repeated fields and comma separated values
func splitList(values []string) []string {
	result := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

func (a *API) ImageUpload(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	if a.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadBytes+1<<20)
	}
	var r ImageUploadForm
	if err := c.ShouldBind(&r); err != nil {
		badRequest(c, err)
		return
	}
	header, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"Image not added"})
		return
	}
	if a.MaxUploadBytes > 0 && header.Size > a.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, Response{"image is too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, err)
		return
	}
	name := r.Name
	if name == "" {
		name = header.Filename
	}
	image, album, err := a.Engine.AddImage(c.Request.Context(), albumID, integrity.ImageUpload{
		Name:      name,
		MimeType:  header.Header.Get("Content-Type"),
		Tags:      splitList(r.Tags),
		Persons:   splitList(r.Persons),
		Favourite: r.Favourite,
		Comments:  r.Comments,
		Content:   content,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ImageUploadResponse{Message: "Image uploaded", Image: image, Album: album})
}

func (a *API) AlbumImages(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	tags := splitList(c.QueryArray("tags"))
	images, err := a.Queries.AlbumImages(c.Request.Context(), albumID, tags)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if isNotModified(c, images) {
		return
	}
	c.JSON(http.StatusOK, images)
}

func (a *API) ImageUpdate(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	var r ImageUpdateRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	image, err := a.Engine.UpdateImage(c.Request.Context(), albumID, imageID, store.ImagePatch{
		Tags:           r.Tags,
		Persons:        r.Persons,
		Favourite:      r.Favourite,
		Comments:       r.Comments,
		AppendComments: r.AddComments,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

func (a *API) ImageDelete(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	if _, err := a.Engine.DeleteImage(c.Request.Context(), albumID, imageID, user.Owner.ID); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{"Image deleted"})
}

func (a *API) ImageList(c *gin.Context, user *auth.User) {
	images, err := a.Queries.AllImages(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	if isNotModified(c, images) {
		return
	}
	c.JSON(http.StatusOK, images)
}

func (a *API) ImageFavourites(c *gin.Context, user *auth.User) {
	images, err := a.Queries.FavouriteImages(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

func (a *API) ImageGet(c *gin.Context, user *auth.User) {
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	image, err := a.Queries.Image(c.Request.Context(), imageID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

func (a *API) ImageThumb(c *gin.Context, user *auth.User) {
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	var r ImageThumbRequest
	if err := c.ShouldBindQuery(&r); err != nil {
		badRequest(c, err)
		return
	}
	if r.Size == 0 {
		r.Size = defaultThumbSize
	}
	r.Size = min(r.Size, maxThumbSize)
	image, err := a.Queries.Image(c.Request.Context(), imageID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	var original bytes.Buffer
	if _, err = a.Objects.Load(c.Request.Context(), image.StorageRef, &original); err != nil {
		a.respondError(c, err)
		return
	}
	var thumb bytes.Buffer
	info, err := utils.CreateThumb(r.Size, &original, &thumb)
	if err != nil {
		if errors.Is(err, utils.ErrUnsupportedImage) {
			c.JSON(http.StatusUnsupportedMediaType, Response{err.Error()})
			return
		}
		a.respondError(c, err)
		return
	}
	utils.SetCache(c, utils.CacheWeek)
	c.Header("content-length", strconv.FormatInt(info.ThumbSize, 10))
	c.Data(http.StatusOK, "image/jpeg", thumb.Bytes())
}
