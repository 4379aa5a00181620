package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/config"
	feedsvc "github.com/osavenko/matcha/backend/internal/services/feed"
	interestsvc "github.com/osavenko/matcha/backend/internal/services/interest"
	likessvc "github.com/osavenko/matcha/backend/internal/services/likes"
	matchessvc "github.com/osavenko/matcha/backend/internal/services/matches"
	"github.com/osavenko/matcha/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	InterestService *interestsvc.Service
	FeedService     *feedsvc.Service
	LikesService    *likessvc.Service
	MatchesService  *matchessvc.Service
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	swipeHandler := handlers.NewSwipeHandler(deps.InterestService)
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	likesHandler := handlers.NewLikesHandler(deps.LikesService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchesService)
	configHandler := handlers.NewConfigHandler(deps.Config.Discovery)

	r.Get("/healthz", handlers.HandleHealth)
	r.Get("/config", configHandler.Handle)

	r.Route("/v1", func(r chi.Router) {
		r.Use(handlers.RequireUserID)
		r.Post("/swipes", swipeHandler.Handle)
		r.Get("/feed", feedHandler.Handle)
		r.Get("/likes/incoming", likesHandler.HandleIncoming)
		r.Get("/matches", matchesHandler.HandleList)
	})
}
