package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"xquest/internal/model"
	"xquest/internal/service"
	"xquest/internal/xapi"
	"xquest/pkg/auth"
	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	googleStateCookie = "google_oauth_state"

	stateCookie    = "twitter_oauth_state"
	userIDCookie   = "twitter_oauth_user_id"
	verifierCookie = "twitter_oauth_verifier"
	cookieMaxAge   = 3600
)

type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token) (*auth.GoogleProfile, error)
}

type XProvider interface {
	NewVerifier() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
}

type XIdentity interface {
	Me(ctx context.Context, accessToken string) (*xapi.User, error)
}

type AuthConfig struct {
	FrontendURL   string
	SecureCookies bool
}

type authRoutes struct {
	us     service.UserServiceI
	google GoogleProvider
	x      XProvider
	xUsers XIdentity
	tokens *auth.TokenIssuer
	cfg    AuthConfig
}

func NewAuthRoutes(handler *gin.RouterGroup, us service.UserServiceI, google GoogleProvider, x XProvider,
	xUsers XIdentity, tokens *auth.TokenIssuer, cfg AuthConfig,
) {
	r := &authRoutes{
		us:     us,
		google: google,
		x:      x,
		xUsers: xUsers,
		tokens: tokens,
		cfg:    cfg,
	}

	h := handler.Group("/auth")
	{
		h.GET("/google", r.GoogleLogin)
		h.GET("/google/callback", r.GoogleCallback)
		h.GET("/x", r.XLogin)
		h.GET("/x/callback", r.XCallback)
	}
}

func (r *authRoutes) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	r.setCookie(c, googleStateCookie, state, cookieMaxAge)

	c.Redirect(http.StatusFound, r.google.AuthCodeURL(state))
}

func (r *authRoutes) GoogleCallback(c *gin.Context) {
	log := logger.Logger()

	if errParam := c.Query("error"); errParam != "" {
		r.redirect(c, url.Values{"error": {errParam}})
		return
	}

	code := c.Query("code")
	if code == "" {
		r.redirect(c, url.Values{"error": {"missing_code"}})
		return
	}

	storedState, _ := c.Cookie(googleStateCookie)
	if storedState == "" || c.Query("state") != storedState {
		r.redirect(c, url.Values{"error": {"invalid_state"}})
		return
	}
	r.setCookie(c, googleStateCookie, "", -1)

	ctx := c.Request.Context()

	token, err := r.google.Exchange(ctx, code)
	if err != nil {
		log.Error("google oauth exchange failed", zap.Error(err))
		r.redirect(c, url.Values{"error": {"oauth_failed"}})
		return
	}

	profile, err := r.google.Profile(ctx, token)
	if err != nil {
		log.Error("failed to get google profile", zap.Error(err))
		r.redirect(c, url.Values{"error": {"oauth_failed"}})
		return
	}

	user, err := r.us.SignIn(ctx, model.User{
		GoogleID: profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
	})
	if err != nil {
		log.Error("failed to sign in user", zap.String("google_id", profile.ID), zap.Error(err))
		r.redirect(c, url.Values{"error": {"oauth_failed"}})
		return
	}

	signed, err := r.tokens.Issue(user.ID, user.GoogleID)
	if err != nil {
		log.Error("failed to issue token", zap.Error(err))
		r.redirect(c, url.Values{"error": {"oauth_failed"}})
		return
	}

	r.redirect(c, url.Values{"token": {signed}, "userId": {user.ID}})
}

func (r *authRoutes) XLogin(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}

	state := uuid.NewString()
	verifier := r.x.NewVerifier()

	r.setCookie(c, stateCookie, state, cookieMaxAge)
	r.setCookie(c, userIDCookie, userID, cookieMaxAge)
	r.setCookie(c, verifierCookie, verifier, cookieMaxAge)

	c.Redirect(http.StatusFound, r.x.AuthCodeURL(state, verifier))
}

func (r *authRoutes) XCallback(c *gin.Context) {
	log := logger.Logger()

	if errParam := c.Query("error"); errParam != "" {
		r.redirect(c, url.Values{"error": {errParam}})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	storedState, _ := c.Cookie(stateCookie)
	userID, _ := c.Cookie(userIDCookie)
	verifier, _ := c.Cookie(verifierCookie)

	if code == "" || state == "" || storedState == "" || userID == "" || verifier == "" {
		r.redirect(c, url.Values{"error": {"missing_parameters"}})
		return
	}

	if state != storedState {
		r.redirect(c, url.Values{"error": {"invalid_state"}})
		return
	}

	ctx := c.Request.Context()

	token, err := r.x.Exchange(ctx, code, verifier)
	if err != nil {
		log.Error("x oauth exchange failed", zap.Error(err))
		r.redirect(c, url.Values{"error": {"x_oauth_failed"}})
		return
	}

	me, err := r.xUsers.Me(ctx, token.AccessToken)
	if err != nil {
		log.Error("failed to get x user", zap.Error(err))
		r.redirect(c, url.Values{"error": {"x_oauth_failed"}})
		return
	}

	if _, err := r.us.LinkXAccount(ctx, userID, me.ID, token.AccessToken); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			r.redirect(c, url.Values{"error": {"user_not_found"}})
			return
		}
		log.Error("failed to link x account", zap.String("user_id", userID), zap.Error(err))
		r.redirect(c, url.Values{"error": {"x_oauth_failed"}})
		return
	}

	r.setCookie(c, stateCookie, "", -1)
	r.setCookie(c, userIDCookie, "", -1)
	r.setCookie(c, verifierCookie, "", -1)

	r.redirect(c, url.Values{"x_linked": {"true"}})
}

func (r *authRoutes) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", r.cfg.SecureCookies, true)
}

func (r *authRoutes) redirect(c *gin.Context, params url.Values) {
	c.Redirect(http.StatusFound, r.cfg.FrontendURL+"?"+params.Encode())
}
