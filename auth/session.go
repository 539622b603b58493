package auth

import (
	"picshelf/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const stateKey = "oauth_state"

// Session only carries the OAuth state between the redirect and the callback
type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

// NewState stores a random state value and returns it
func (s *Session) NewState() (string, error) {
	state := utils.Rand16BytesToBase62()
	s.Set(stateKey, state)
	return state, s.Save()
}

// ConsumeState reports whether state matches the stored one. The stored value is always cleared.
func (s *Session) ConsumeState(state string) bool {
	stored, _ := s.Get(stateKey).(string)
	s.Delete(stateKey)
	if err := s.Save(); err != nil {
		// The check still runs, a stale state only lives until the cookie expires
		log.Warn().Err(err).Msg("clearing oauth state failed")
	}
	return stored != "" && stored == state
}
