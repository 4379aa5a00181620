package handlers

import (
	"errors"
	"net/http"

	likessvc "github.com/osavenko/matcha/backend/internal/services/likes"
	"github.com/osavenko/matcha/backend/internal/store"
	"github.com/osavenko/matcha/backend/internal/transport/http/dto"
	httperrors "github.com/osavenko/matcha/backend/internal/transport/http/errors"
)

type LikesHandler struct {
	service *likessvc.Service
}

func NewLikesHandler(service *likessvc.Service) *LikesHandler {
	return &LikesHandler{service: service}
}

func (h *LikesHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "caller identity is required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	incoming, err := h.service.GetIncoming(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, likessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid request")
		case errors.Is(err, likessvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "requester profile does not exist")
		case errors.Is(err, store.ErrUnavailable):
			writeUnavailable(w, "STORE_UNAVAILABLE", "profile store is unavailable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load incoming likes")
		}
		return
	}

	likes := make([]dto.IncomingLike, 0, len(incoming))
	for _, in := range incoming {
		likes = append(likes, dto.IncomingLike{
			UserID:      in.Profile.ID,
			DisplayName: in.Profile.DisplayName,
			Kind:        string(in.Kind),
			Age:         in.Age,
			DistanceKM:  in.DistanceKM,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.IncomingLikesResponse{Likes: likes})
}
