package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"picshelf/auth"
	"picshelf/integrity"
	"picshelf/models"
	"picshelf/query"
	"picshelf/storage"
	"picshelf/store"
	"picshelf/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Response struct {
	Message string `json:"message"`
}

const (
	etagHeader = "ETag"
)

// API holds what the handlers need. Writes go through Engine, reads through Queries.
type API struct {
	Engine         *integrity.Service
	Queries        *query.Service
	Objects        storage.ObjectStore
	Gateway        *auth.Gateway
	FrontendURL    string
	MaxUploadBytes int64
	Log            zerolog.Logger
}

func (a *API) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	var engineErr *integrity.Error
	switch {
	case errors.As(err, &engineErr):
		// The engine kind wins over whatever store error caused it
		switch engineErr.Kind {
		case integrity.InvalidInput, integrity.UploadFailed:
			status, message = http.StatusBadRequest, err.Error()
		case integrity.NotFound:
			status, message = http.StatusNotFound, err.Error()
		case integrity.Forbidden:
			// Do not reveal albums that belong to someone else
			status, message = http.StatusNotFound, "not found"
		case integrity.UpdateFailed, integrity.OrphanDetected:
			message = engineErr.Kind.String()
		}
	case store.IsNotFound(err):
		status, message = http.StatusNotFound, "not found"
	}
	if status >= http.StatusInternalServerError {
		a.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, Response{message})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{err.Error()})
}

// pathID parses a uuid path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"invalid " + name})
		return models.NilID, false
	}
	return id, true
}

// isNotModified sets the ETag from the newest update time and answers 304 when the client has it
func isNotModified(c *gin.Context, images []*models.Image) bool {
	lastUpdatedAt := int64(0)
	for _, image := range images {
		lastUpdatedAt = max(lastUpdatedAt, image.UpdatedAt)
	}
	etag := strconv.FormatInt(lastUpdatedAt, 10) + "-" + strconv.Itoa(len(images))
	utils.SetCache(c, 1)
	c.Header(etagHeader, etag)
	if c.Request.Header.Get("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// Register wires every route. authRouter routes require a valid session token.
func (a *API) Register(router gin.IRouter, authRouter *auth.Router) {
	// Login
	router.GET("/auth/google", a.AuthGoogle)
	router.GET("/auth/google/callback", a.AuthGoogleCallback)
	authRouter.GET("/profile", a.Profile)
	authRouter.GET("/users", a.UserList)
	// Albums
	authRouter.GET("/albums", a.AlbumList)
	authRouter.GET("/albums/all", a.AlbumListAll)
	authRouter.POST("/albums", a.AlbumCreate)
	authRouter.POST("/albums/:albumId", a.AlbumUpdate)
	authRouter.POST("/albums/:albumId/share", a.AlbumShare)
	authRouter.DELETE("/albums/:albumId", a.AlbumDelete)
	// Images of an album
	authRouter.POST("/albums/:albumId/images", a.ImageUpload)
	authRouter.GET("/albums/:albumId/images", a.AlbumImages)
	authRouter.POST("/albums/:albumId/images/:imageId", a.ImageUpdate)
	authRouter.DELETE("/albums/:albumId/images/:imageId", a.ImageDelete)
	// Images
	authRouter.GET("/images", a.ImageList)
	authRouter.GET("/images/favourites", a.ImageFavourites)
	authRouter.GET("/images/:imageId", a.ImageGet)
	authRouter.GET("/images/:imageId/thumb", a.ImageThumb)
}
