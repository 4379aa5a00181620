package dto

type ConfigResponse struct {
	AgeMin           int      `json:"age_min"`
	AgeMax           int      `json:"age_max"`
	MaxDistanceKM    int      `json:"max_distance_km"`
	ResetWindow      string   `json:"reset_window"`
	SupportedActions []string `json:"supported_actions"`
}
