package core

import "time"

// Session represents an authenticated session issued by the upstream API
type Session struct {
	ID            string    // Unique session identifier
	Subject       string    // Username the session belongs to
	Role          string    // Role of the user at login time
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// Token is the body returned by the login and refresh endpoints
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// SessionTerminated is emitted when a session could not be refreshed and
// the local session state was torn down
type SessionTerminated struct {
	ID         string    `json:"id"`
	Reason     string    `json:"reason"`
	Path       string    `json:"path"`        // Path of the request that triggered the refresh
	RedirectTo string    `json:"redirect_to"` // Empty when the client was already on the login page
	OccurredAt time.Time `json:"occurred_at"`
}
