package handlers

import (
	"net/http"
	"net/url"

	"picshelf/auth"

	"github.com/gin-gonic/gin"
)

type CallbackRequest struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required"`
}

type ProfileResponse struct {
	Message string       `json:"message"`
	User    *auth.Claims `json:"user"`
}

func (a *API) AuthGoogle(c *gin.Context) {
	state, err := auth.LoadSession(c).NewState()
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, a.Gateway.Provider.AuthCodeURL(state))
}

func (a *API) AuthGoogleCallback(c *gin.Context) {
	var r CallbackRequest
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{"Authorization code not provided"})
		return
	}
	if !auth.LoadSession(c).ConsumeState(r.State) {
		c.JSON(http.StatusBadRequest, Response{"invalid login state"})
		return
	}
	token, owner, err := a.Gateway.Login(c.Request.Context(), r.Code)
	if err != nil {
		a.Log.Error().Err(err).Msg("google login failed")
		c.JSON(http.StatusInternalServerError, Response{"Failed to fetch access token from Google."})
		return
	}
	a.Log.Info().Str("owner_id", owner.ID.String()).Msg("owner logged in")
	c.Redirect(http.StatusFound, a.FrontendURL+"/register?token="+url.QueryEscape(token))
}

func (a *API) Profile(c *gin.Context, user *auth.User) {
	c.JSON(http.StatusOK, ProfileResponse{Message: "Welcome to protected route", User: user.Claims})
}

func (a *API) UserList(c *gin.Context, user *auth.User) {
	owners, err := a.Queries.Owners(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owners)
}
