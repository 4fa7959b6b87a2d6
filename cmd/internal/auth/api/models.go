package authapi

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type tokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type meResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
