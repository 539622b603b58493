package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleAPI = "https://www.googleapis.com"

// Profile is what the identity provider tells us about the user
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Provider interface {
	// AuthCodeURL is where the user is sent to log in
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the user's profile
	Exchange(ctx context.Context, code string) (*Profile, error)
}

type Google struct {
	oauth  *oauth2.Config
	client *resty.Client
}

func NewGoogle(clientID, clientSecret, backendURL string) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  backendURL + "/auth/google/callback",
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		client: resty.New().
			SetBaseURL(googleAPI).
			SetTimeout(15 * time.Second),
	}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "exchanging code")
	}
	var profile Profile
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&profile).
		Get("/oauth2/v2/userinfo")
	if err != nil {
		return nil, errors.Wrap(err, "fetching userinfo")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("userinfo status %d: %s", resp.StatusCode(), resp.String())
	}
	if profile.ID == "" {
		return nil, errors.New("userinfo without id")
	}
	return &profile, nil
}
