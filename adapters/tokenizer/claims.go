package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
	Role      string `json:"role,omitempty"`
}

// RefreshClaims carries the role so a rotated access token keeps it
type RefreshClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}
