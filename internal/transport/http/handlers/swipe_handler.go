package handlers

import (
	"errors"
	"net/http"

	"github.com/osavenko/matcha/backend/internal/pkg/validate"
	interestsvc "github.com/osavenko/matcha/backend/internal/services/interest"
	"github.com/osavenko/matcha/backend/internal/store"
	"github.com/osavenko/matcha/backend/internal/transport/http/dto"
	httperrors "github.com/osavenko/matcha/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *interestsvc.Service
}

func NewSwipeHandler(service *interestsvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "caller identity is required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.TargetID) || !validate.Required(req.Action) {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and action are required")
		return
	}

	result, err := h.service.Apply(r.Context(), userID, req.TargetID, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, interestsvc.ErrUnsupportedIntent):
			writeBadRequest(w, "UNSUPPORTED_ACTION", "unsupported swipe action")
		case errors.Is(err, interestsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, interestsvc.ErrTargetNotFound):
			writeNotFound(w, "TARGET_NOT_FOUND", "swipe target does not exist")
		case errors.Is(err, store.ErrUnavailable):
			writeUnavailable(w, "STORE_UNAVAILABLE", "profile store is unavailable")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		Outcome:   string(result.Outcome),
		MatchKind: string(result.Kind),
	})
}
