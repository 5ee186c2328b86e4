package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrUserClaimMissing      = errors.New("user_id claim is missing or invalid")
	ErrCompanyClaimMissing   = errors.New("company_id claim is missing or invalid")
	ErrManagerAccessRequired = errors.New("manager access required")
)
