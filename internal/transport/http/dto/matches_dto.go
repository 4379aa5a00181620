package dto

type Match struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

type MatchesResponse struct {
	Matches []Match `json:"matches"`
}
