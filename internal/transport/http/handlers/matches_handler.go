package handlers

import (
	"errors"
	"net/http"

	matchessvc "github.com/osavenko/matcha/backend/internal/services/matches"
	"github.com/osavenko/matcha/backend/internal/store"
	"github.com/osavenko/matcha/backend/internal/transport/http/dto"
	httperrors "github.com/osavenko/matcha/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "caller identity is required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid request")
		case errors.Is(err, matchessvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "requester profile does not exist")
		case errors.Is(err, store.ErrUnavailable):
			writeUnavailable(w, "STORE_UNAVAILABLE", "profile store is unavailable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		}
		return
	}

	matches := make([]dto.Match, 0, len(items))
	for _, item := range items {
		matches = append(matches, dto.Match{
			UserID:      item.Profile.ID,
			DisplayName: item.Profile.DisplayName,
			Kind:        string(item.Kind),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Matches: matches})
}
