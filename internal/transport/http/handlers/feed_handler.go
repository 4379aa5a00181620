package handlers

import (
	"errors"
	"net/http"

	feedsvc "github.com/osavenko/matcha/backend/internal/services/feed"
	"github.com/osavenko/matcha/backend/internal/store"
	"github.com/osavenko/matcha/backend/internal/transport/http/dto"
	httperrors "github.com/osavenko/matcha/backend/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "caller identity is required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	result, err := h.service.GetCandidates(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, feedsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid feed request")
		case errors.Is(err, feedsvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "requester profile does not exist")
		case errors.Is(err, store.ErrUnavailable):
			writeUnavailable(w, "STORE_UNAVAILABLE", "profile store is unavailable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to build feed")
		}
		return
	}

	candidates := make([]dto.FeedCandidate, 0, len(result.Candidates))
	for _, candidate := range result.Candidates {
		candidates = append(candidates, dto.FeedCandidate{
			UserID:      candidate.Profile.ID,
			DisplayName: candidate.Profile.DisplayName,
			Gender:      candidate.Profile.Gender,
			Age:         candidate.Age,
			DistanceKM:  candidate.DistanceKM,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.FeedResponse{
		Candidates: candidates,
		Refreshed:  result.Refreshed,
	})
}
