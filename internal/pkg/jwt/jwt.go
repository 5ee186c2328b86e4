package jwt

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// SSETokenTTL is the lifetime of stream tokens.
const SSETokenTTL = 5 * time.Minute

type Service interface {
	GenerateAccessToken(identity auth.Identity) (token string, expiresAt int64, err error)
	GenerateSSEToken(identity auth.Identity) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (auth.Identity, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenTTL time.Duration) Service {
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken issues a token in the shape the identity provider
// hands out. Used by tooling and tests; login itself lives elsewhere.
func (j *JWTService) GenerateAccessToken(identity auth.Identity) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    identity.UserID,
		"company_id": identity.CompanyID,
		"role":       identity.Role,
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(identity auth.Identity) (token string, expiresIn int, err error) {
	expiresIn = int(SSETokenTTL / time.Second)
	expiresAt := time.Now().Add(SSETokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    identity.UserID,
		"company_id": identity.CompanyID,
		"role":       identity.Role,
		"type":       "sse",
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the identity it carries
func (j *JWTService) ValidateSSEToken(tokenString string) (auth.Identity, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	// Check token type
	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	return auth.IdentityFromClaims(claims)
}
