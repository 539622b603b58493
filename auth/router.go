package auth

import (
	"net/http"
	"strings"

	"picshelf/models"
	"picshelf/store"

	"github.com/gin-gonic/gin"
)

// User is the authenticated caller
type User struct {
	Claims *Claims
	Owner  *models.Owner
}

type HandlerFunc func(c *gin.Context, user *User)

// Router is a wrapper that verifies the session token and pre-loads the Owner
type Router struct {
	Base   gin.IRouter
	Tokens *Tokens
	Owners store.Owners
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No Token provided"})
		return
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	claims, err := cr.Tokens.Verify(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Token"})
		return
	}
	owner, err := cr.Owners.Get(c.Request.Context(), claims.OwnerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Token"})
		return
	}
	handler(c, &User{Claims: claims, Owner: owner})
}

func (cr *Router) POST(path string, handler HandlerFunc) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

func (cr *Router) GET(path string, handler HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

func (cr *Router) DELETE(path string, handler HandlerFunc) {
	cr.Base.DELETE(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}
