package request

// CreateGuestRequest is the request body for creating a guest session
type CreateGuestRequest struct {
	Name string `json:"name"`
}

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateRaceRequest is the request body for creating a race
type CreateRaceRequest struct {
	MaxPlayers int  `json:"max_players,omitempty"`
	Private    bool `json:"private,omitempty"`
}

// ProgressRequest is the request body for reporting typing progress
type ProgressRequest struct {
	Progress int     `json:"progress"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Errors   int     `json:"errors"`
}
