package auth

import (
	"context"
	"strings"

	"picshelf/models"
	"picshelf/store"

	"github.com/pkg/errors"
)

// Gateway turns a provider login into an Owner and a session token
type Gateway struct {
	Provider Provider
	Owners   store.Owners
	Tokens   *Tokens
}

// Login exchanges the code, creates or refreshes the Owner keyed by the provider id and issues a token
func (g *Gateway) Login(ctx context.Context, code string) (string, *models.Owner, error) {
	profile, err := g.Provider.Exchange(ctx, code)
	if err != nil {
		return "", nil, err
	}
	owner, err := g.Owners.Upsert(ctx, profile.ID, strings.ToLower(profile.Email), profile.Name)
	if err != nil {
		return "", nil, errors.Wrap(err, "saving owner")
	}
	token, err := g.Tokens.Issue(Claims{
		GoogleID: profile.ID,
		Email:    owner.Email,
		Name:     owner.Name,
		OwnerID:  owner.ID,
	})
	if err != nil {
		return "", nil, err
	}
	return token, owner, nil
}
