package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const (
	defaultTokenTTL = 7 * 24 * time.Hour
	issuer          = "xquest"

	// ClaimsKey is the gin context key holding *Claims after Middleware ran.
	ClaimsKey = "auth_claims"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret is empty")
)

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Claims struct {
	UserID   string `json:"userId"`
	GoogleID string `json:"googleId"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(cfg JWTConfig) *TokenIssuer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
	}
}

func (t *TokenIssuer) Issue(userID, googleID string) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrEmptySecret
	}

	now := time.Now()
	claims := Claims{
		UserID:   userID,
		GoogleID: googleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates an HS256 token. With an empty secret every token is
// rejected.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, ErrEmptySecret)
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Middleware rejects requests without a valid "Bearer <jwt>" Authorization
// header and stores the parsed claims under ClaimsKey.
func (t *TokenIssuer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := t.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Info("invalid token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
