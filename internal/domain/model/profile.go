package model

import "time"

type Preferences struct {
	LookingFor    string `json:"looking_for"`
	AgeMin        int    `json:"age_min"`
	AgeMax        int    `json:"age_max"`
	MaxDistanceKM int    `json:"max_distance_km"`
}

type UserProfile struct {
	ID                  string      `json:"id"`
	DisplayName         string      `json:"display_name"`
	Gender              string      `json:"gender"`
	Birthdate           *time.Time  `json:"birthdate"`
	Lat                 *float64    `json:"lat"`
	Lon                 *float64    `json:"lon"`
	Prefs               Preferences `json:"prefs"`
	LastDiscoverRefresh *time.Time  `json:"last_discover_refresh"`
	// ChatID is owned by the notification subsystem; the engine only reads it
	// to address match notifications.
	ChatID int64 `json:"chat_id"`

	LikedUsers       []string `json:"liked_users"`
	SuperLikedUsers  []string `json:"super_liked_users"`
	Likers           []string `json:"likers"`
	SuperLikers      []string `json:"super_likers"`
	LikeMatches      []string `json:"like_matches"`
	SuperLikeMatches []string `json:"super_like_matches"`
	Blockers         []string `json:"blockers"`
	Blocked          []string `json:"blocked"`
}

func (p UserProfile) HasCoordinates() bool {
	return p.Lat != nil && p.Lon != nil
}

func (p UserProfile) InLikedUsers(id string) bool      { return containsID(p.LikedUsers, id) }
func (p UserProfile) InSuperLikedUsers(id string) bool { return containsID(p.SuperLikedUsers, id) }
func (p UserProfile) InLikers(id string) bool          { return containsID(p.Likers, id) }
func (p UserProfile) InSuperLikers(id string) bool     { return containsID(p.SuperLikers, id) }
func (p UserProfile) InLikeMatches(id string) bool     { return containsID(p.LikeMatches, id) }
func (p UserProfile) InSuperLikeMatches(id string) bool {
	return containsID(p.SuperLikeMatches, id)
}

func (p UserProfile) IsBlockedPair(id string) bool {
	return containsID(p.Blockers, id) || containsID(p.Blocked, id)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
