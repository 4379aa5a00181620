package rules

import (
	"strings"
	"time"
)

const (
	DefaultAgeMin        = 18
	DefaultAgeMax        = 90
	DefaultMaxDistanceKM = 150
	DefaultResetWindow   = 12 * time.Hour
)

func AgeAt(birthdate, now time.Time) int {
	age := now.Year() - birthdate.Year()
	anniversary := time.Date(now.Year(), birthdate.Month(), birthdate.Day(), 0, 0, 0, 0, time.UTC)
	if anniversary.After(now) {
		age--
	}
	return age
}

func WithinAgeRange(age, min, max int) bool {
	return age >= min && age <= max
}

// WantsGender reports whether a profile looking for lookingFor would accept a
// candidate of the given gender. Empty and "both" accept everyone.
func WantsGender(lookingFor, gender string) bool {
	want := strings.ToLower(strings.TrimSpace(lookingFor))
	if want == "" || want == "both" {
		return true
	}
	return want == strings.ToLower(strings.TrimSpace(gender))
}

// ResetWindowElapsed reports whether previously acted-upon candidates may
// resurface. A profile that never refreshed its feed counts as elapsed.
func ResetWindowElapsed(lastRefresh *time.Time, now time.Time, window time.Duration) bool {
	if lastRefresh == nil {
		return true
	}
	return now.Sub(*lastRefresh) >= window
}

func NormalizeAgeRange(ageMin, ageMax, defaultMin, defaultMax int) (int, int) {
	if ageMin <= 0 {
		ageMin = defaultMin
	}
	if ageMax <= 0 {
		ageMax = defaultMax
	}
	if ageMin > ageMax {
		ageMin, ageMax = ageMax, ageMin
	}
	return ageMin, ageMax
}

func NormalizeRadius(radius, fallback int) int {
	if radius <= 0 {
		return fallback
	}
	return radius
}
