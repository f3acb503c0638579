package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"xquest/internal/model"
	"xquest/internal/repository"
	"xquest/internal/service"
	"xquest/internal/xapi"
	"xquest/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const frontendURL = "http://frontend.test"

type fakeGoogle struct {
	profile     *auth.GoogleProfile
	exchangeErr error
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://google.test/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "g-" + code}, nil
}

func (f *fakeGoogle) Profile(_ context.Context, _ *oauth2.Token) (*auth.GoogleProfile, error) {
	return f.profile, nil
}

type fakeX struct {
	gotVerifier string
	exchangeErr error
}

func (f *fakeX) NewVerifier() string { return "verifier-1" }

func (f *fakeX) AuthCodeURL(state, verifier string) string {
	return "https://x.test/auth?" + url.Values{"state": {state}, "v": {verifier}}.Encode()
}

func (f *fakeX) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	f.gotVerifier = verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "x-token-" + code}, nil
}

type fakeXIdentity struct{}

func (fakeXIdentity) Me(_ context.Context, _ string) (*xapi.User, error) {
	return &xapi.User{ID: "x-42", Username: "ann"}, nil
}

type authEnv struct {
	router *gin.Engine
	store  *repository.FileStore
	google *fakeGoogle
	x      *fakeX
	tokens *auth.TokenIssuer
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	store, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	env := &authEnv{
		store:  store,
		google: &fakeGoogle{profile: &auth.GoogleProfile{ID: "g-1", Email: "ann@example.com", Name: "Ann"}},
		x:      &fakeX{},
		tokens: auth.NewTokenIssuer(auth.JWTConfig{Secret: "secret"}),
	}

	env.router = gin.New()
	NewAuthRoutes(env.router.Group("/api"), service.NewUserService(store), env.google, env.x, fakeXIdentity{},
		env.tokens, AuthConfig{FrontendURL: frontendURL})

	return env
}

func get(router http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func redirectQuery(t *testing.T, w *httptest.ResponseRecorder) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return u.Query()
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestGoogleLogin(t *testing.T) {
	env := newAuthEnv(t)

	w := get(env.router, "/api/auth/google")
	q := redirectQuery(t, w)
	require.NotEmpty(t, q.Get("state"))

	cookie := cookiesByName(w)[googleStateCookie]
	require.NotNil(t, cookie)
	assert.Equal(t, q.Get("state"), cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, cookieMaxAge, cookie.MaxAge)
}

func TestGoogleCallback(t *testing.T) {
	env := newAuthEnv(t)
	state := &http.Cookie{Name: googleStateCookie, Value: "st-1"}

	q := redirectQuery(t, get(env.router, "/api/auth/google/callback?error=access_denied"))
	assert.Equal(t, "access_denied", q.Get("error"))

	q = redirectQuery(t, get(env.router, "/api/auth/google/callback", state))
	assert.Equal(t, "missing_code", q.Get("error"))

	w := get(env.router, "/api/auth/google/callback?code=abc&state=st-1", state)
	q = redirectQuery(t, w)
	require.Empty(t, q.Get("error"))
	assert.Negative(t, cookiesByName(w)[googleStateCookie].MaxAge)

	userID := q.Get("userId")
	claims, err := env.tokens.Parse(q.Get("token"))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "g-1", claims.GoogleID)

	user, err := env.store.FindUserByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, 0, user.XP)

	// second sign-in finds the same user
	q = redirectQuery(t, get(env.router, "/api/auth/google/callback?code=def&state=st-1", state))
	assert.Equal(t, userID, q.Get("userId"))
}

func TestGoogleCallback_State(t *testing.T) {
	env := newAuthEnv(t)

	tests := []struct {
		name    string
		path    string
		cookies []*http.Cookie
	}{
		{"no cookie", "/api/auth/google/callback?code=abc&state=st-1", nil},
		{"no state param", "/api/auth/google/callback?code=abc", []*http.Cookie{{Name: googleStateCookie, Value: "st-1"}}},
		{"mismatch", "/api/auth/google/callback?code=abc&state=other", []*http.Cookie{{Name: googleStateCookie, Value: "st-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := redirectQuery(t, get(env.router, tt.path, tt.cookies...))
			assert.Equal(t, "invalid_state", q.Get("error"))
			assert.Empty(t, q.Get("token"))
		})
	}
}

func TestGoogleCallback_ExchangeFails(t *testing.T) {
	env := newAuthEnv(t)
	env.google.exchangeErr = assert.AnError

	q := redirectQuery(t, get(env.router, "/api/auth/google/callback?code=abc&state=st-1",
		&http.Cookie{Name: googleStateCookie, Value: "st-1"}))
	assert.Equal(t, "oauth_failed", q.Get("error"))
}

func TestXLogin(t *testing.T) {
	env := newAuthEnv(t)

	w := get(env.router, "/api/auth/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(env.router, "/api/auth/x?userId=u1")
	q := redirectQuery(t, w)

	cookies := cookiesByName(w)
	require.Contains(t, cookies, stateCookie)
	require.Contains(t, cookies, userIDCookie)
	require.Contains(t, cookies, verifierCookie)

	assert.Equal(t, q.Get("state"), cookies[stateCookie].Value)
	assert.Equal(t, "u1", cookies[userIDCookie].Value)
	assert.Equal(t, "verifier-1", cookies[verifierCookie].Value)
	assert.Equal(t, cookieMaxAge, cookies[stateCookie].MaxAge)
	assert.True(t, cookies[stateCookie].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[stateCookie].SameSite)
}

func TestXCallback(t *testing.T) {
	env := newAuthEnv(t)
	user, err := env.store.CreateUser(context.Background(), &model.User{GoogleID: "g-1", Quests: map[string]model.QuestStatus{}})
	require.NoError(t, err)

	cookies := func(state, userID string) []*http.Cookie {
		return []*http.Cookie{
			{Name: stateCookie, Value: state},
			{Name: userIDCookie, Value: userID},
			{Name: verifierCookie, Value: "verifier-1"},
		}
	}

	tests := []struct {
		name      string
		path      string
		cookies   []*http.Cookie
		wantError string
	}{
		{"provider error", "/api/auth/x/callback?error=access_denied", nil, "access_denied"},
		{"missing cookies", "/api/auth/x/callback?code=c&state=s", nil, "missing_parameters"},
		{"missing code", "/api/auth/x/callback?state=s", cookies("s", user.ID), "missing_parameters"},
		{"state mismatch", "/api/auth/x/callback?code=c&state=s", cookies("other", user.ID), "invalid_state"},
		{"unknown user", "/api/auth/x/callback?code=c&state=s", cookies("s", "nope"), "user_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := redirectQuery(t, get(env.router, tt.path, tt.cookies...))
			assert.Equal(t, tt.wantError, q.Get("error"))
		})
	}

	w := get(env.router, "/api/auth/x/callback?code=c&state=s", cookies("s", user.ID)...)
	q := redirectQuery(t, w)
	assert.Equal(t, "true", q.Get("x_linked"))
	assert.Equal(t, "verifier-1", env.x.gotVerifier)

	for _, name := range []string{stateCookie, userIDCookie, verifierCookie} {
		c := cookiesByName(w)[name]
		require.NotNil(t, c, name)
		assert.Negative(t, c.MaxAge, name)
	}

	linked, err := env.store.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "x-42", linked.XID)
	assert.Equal(t, "x-token-c", linked.XAccessToken)
}

func TestXCallback_ExchangeFails(t *testing.T) {
	env := newAuthEnv(t)
	env.x.exchangeErr = assert.AnError

	q := redirectQuery(t, get(env.router, "/api/auth/x/callback?code=c&state=s",
		&http.Cookie{Name: stateCookie, Value: "s"},
		&http.Cookie{Name: userIDCookie, Value: "u1"},
		&http.Cookie{Name: verifierCookie, Value: "v"},
	))
	assert.Equal(t, "x_oauth_failed", q.Get("error"))
}
