package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1
	CacheWeek    = 7 * 86400
)

type CacheRouter struct {
	CacheTime int // defaults to CacheNoCache = 0
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cr.CacheTime != CacheCustom {
			SetCache(c, cr.CacheTime)
		}
		c.Next()
	}
}

// SetCache overrides the router default for one response
func SetCache(c *gin.Context, seconds int) {
	if seconds == CacheNoCache {
		c.Header("cache-control", "no-cache")
		return
	}
	c.Header("cache-control", "private, max-age="+strconv.Itoa(seconds))
}
