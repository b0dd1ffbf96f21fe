package domain

// TokenPair is the session credential pair handed out by the login endpoint.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// LoginResponse is the body shape of a successful login call.
type LoginResponse struct {
	Message string    `json:"message,omitempty"`
	Data    TokenPair `json:"data"`
}
