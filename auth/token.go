package auth

import (
	"crypto/sha256"
	"time"

	"picshelf/models"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom claims carried by a session token
type Claims struct {
	GoogleID string    `json:"googleId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	OwnerID  models.ID `json:"ownerId"`
	// Expiry is filled from the registered exp claim
	Expiry time.Time `json:"-"`
}

// Tokens issues and verifies HS256 signed, time-bound session tokens
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	// HS256 wants a 256 bit key whatever the configured secret looks like
	key := sha256.Sum256([]byte(secret))
	return &Tokens{key: key[:], ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(c Claims) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: t.key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", errors.Wrap(err, "creating signer")
	}
	now := t.now()
	registered := jwt.Claims{
		Subject:  c.OwnerID.String(),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}
	raw, err := jwt.Signed(signer).Claims(registered).Claims(c).Serialize()
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return raw, nil
}

func (t *Tokens) Verify(raw string) (*Claims, error) {
	token, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	var (
		registered jwt.Claims
		claims     Claims
	)
	if err = token.Claims(t.key, &registered, &claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if err = registered.ValidateWithLeeway(jwt.Expected{Time: t.now()}, 0); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.OwnerID == models.NilID {
		return nil, errors.Wrap(ErrInvalidToken, "no owner")
	}
	claims.Expiry = registered.Expiry.Time()
	return &claims, nil
}
