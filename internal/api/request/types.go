package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	Username string `json:"username"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SubmitScoreRequest is the request body for reporting a completed round
type SubmitScoreRequest struct {
	TotalShots  int         `json:"total_shots"`
	TotalHoles  int         `json:"total_holes"`
	ScoreByHole map[int]int `json:"score_by_hole,omitempty"`
}
