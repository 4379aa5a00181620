package dto

type IncomingLike struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Kind        string   `json:"kind"`
	Age         int      `json:"age"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
}

type IncomingLikesResponse struct {
	Likes []IncomingLike `json:"likes"`
}
