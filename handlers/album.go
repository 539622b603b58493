package handlers

import (
	"net/http"

	"picshelf/auth"
	"picshelf/integrity"
	"picshelf/store"

	"github.com/gin-gonic/gin"
)

type AlbumCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AlbumUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type AlbumShareRequest struct {
	Emails []string `json:"emails" binding:"required,min=1"`
}

func (a *API) AlbumList(c *gin.Context, user *auth.User) {
	albums, err := a.Queries.AlbumsFor(c.Request.Context(), user.Owner)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}

// AlbumListAll lists every album in the catalog, like /images does for images
func (a *API) AlbumListAll(c *gin.Context, user *auth.User) {
	albums, err := a.Queries.Albums(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}

func (a *API) AlbumCreate(c *gin.Context, user *auth.User) {
	var r AlbumCreateRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	album, err := a.Engine.CreateAlbum(c.Request.Context(), user.Owner.ID, integrity.AlbumInput{
		Name:        r.Name,
		Description: r.Description,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumUpdate(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	var r AlbumUpdateRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	album, err := a.Engine.UpdateAlbum(c.Request.Context(), albumID, user.Owner.ID, store.AlbumPatch{
		Name:        r.Name,
		Description: r.Description,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumShare(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	var r AlbumShareRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	album, err := a.Engine.ShareAlbum(c.Request.Context(), albumID, user.Owner.ID, r.Emails)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumDelete(c *gin.Context, user *auth.User) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	album, err := a.Engine.DeleteAlbum(c.Request.Context(), albumID, user.Owner.ID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Album deleted", "album": album})
}
