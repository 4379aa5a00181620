package dto

type FeedCandidate struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Gender      string  `json:"gender"`
	Age         int     `json:"age"`
	DistanceKM  float64 `json:"distance_km"`
}

type FeedResponse struct {
	Candidates []FeedCandidate `json:"candidates"`
	Refreshed  bool            `json:"refreshed"`
}
