package handlers

import (
	"net/http"

	"github.com/osavenko/matcha/backend/internal/config"
	"github.com/osavenko/matcha/backend/internal/transport/http/dto"
	httperrors "github.com/osavenko/matcha/backend/internal/transport/http/errors"
)

type ConfigHandler struct {
	discovery config.DiscoveryConfig
}

func NewConfigHandler(discovery config.DiscoveryConfig) *ConfigHandler {
	return &ConfigHandler{discovery: discovery}
}

func (h *ConfigHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, dto.ConfigResponse{
		AgeMin:           h.discovery.AgeMin,
		AgeMax:           h.discovery.AgeMax,
		MaxDistanceKM:    h.discovery.MaxDistanceKM,
		ResetWindow:      h.discovery.ResetWindow.String(),
		SupportedActions: []string{"LIKE", "SUPER_LIKE", "DISLIKE"},
	})
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
