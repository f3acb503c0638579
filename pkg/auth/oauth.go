package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	xAuthURL  = "https://twitter.com/i/oauth2/authorize"
	xTokenURL = "https://api.twitter.com/2/oauth2/token"
)

// ProviderConfig holds the OAuth client registration of one provider. The URL
// fields are optional and default to the provider's public endpoints.
type ProviderConfig struct {
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
	RedirectURL  string `mapstructure:"redirectUrl"`
	AuthURL      string `mapstructure:"authUrl"`
	TokenURL     string `mapstructure:"tokenUrl"`
	UserInfoURL  string `mapstructure:"userInfoUrl"`
}

type GoogleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Google struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogle(cfg ProviderConfig) *Google {
	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  orDefault(cfg.AuthURL, googleAuthURL),
				TokenURL: orDefault(cfg.TokenURL, googleTokenURL),
			},
		},
		userInfoURL: orDefault(cfg.UserInfoURL, googleUserInfoURL),
	}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange google code: %w", err)
	}
	return token, nil
}

func (g *Google) Profile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read google userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode google userinfo: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("google userinfo without id")
	}

	return &profile, nil
}

// X runs the OAuth 2.0 authorization code flow with PKCE against X.
type X struct {
	config *oauth2.Config
}

func NewX(cfg ProviderConfig) *X {
	return &X{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"tweet.read", "users.read", "follows.read", "like.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, xAuthURL),
				TokenURL:  orDefault(cfg.TokenURL, xTokenURL),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier.
func (x *X) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

func (x *X) AuthCodeURL(state, verifier string) string {
	return x.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (x *X) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := x.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange x code: %w", err)
	}
	return token, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
