package auth

import (
	"context"

	"github.com/go-chi/jwtauth/v5"
)

// Identity is the acting user as supplied by the access token.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

// IdentityFromClaims reads user_id, company_id and role from token claims.
func IdentityFromClaims(claims map[string]interface{}) (Identity, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, ErrUserClaimMissing
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return Identity{}, ErrCompanyClaimMissing
	}

	role, _ := claims["role"].(string)

	return Identity{UserID: userID, CompanyID: companyID, Role: role}, nil
}

// IdentityFromContext extracts the identity from a request verified by jwtauth.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return Identity{}, ErrInvalidToken
	}
	return IdentityFromClaims(claims)
}
