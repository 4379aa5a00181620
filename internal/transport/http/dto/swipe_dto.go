package dto

type SwipeRequest struct {
	TargetID string `json:"target_id"`
	Action   string `json:"action"`
}

type SwipeResponse struct {
	Outcome   string `json:"outcome"`
	MatchKind string `json:"match_kind,omitempty"`
}
