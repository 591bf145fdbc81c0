package types

// TokenInfo holds the identity extracted from a validated bearer token.
type TokenInfo struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}
