package identity

// envelope is the JSON body of every identity service response.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// signInData is the data of the signin and signup responses.
type signInData struct {
	AccessToken         string `json:"access_token"`
	AccessTokenExpired  string `json:"acces_token_expired"`
	RefreshToken        string `json:"refresh_token"`
	RefreshTokenExpired string `json:"refresh_token_expired"`
}
