package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/config"
	tginfra "github.com/osavenko/matcha/backend/internal/infra/telegram"
	"github.com/osavenko/matcha/backend/internal/jobs/reconcile"
	redisrepo "github.com/osavenko/matcha/backend/internal/repo/redis"
	feedsvc "github.com/osavenko/matcha/backend/internal/services/feed"
	interestsvc "github.com/osavenko/matcha/backend/internal/services/interest"
	likessvc "github.com/osavenko/matcha/backend/internal/services/likes"
	matchessvc "github.com/osavenko/matcha/backend/internal/services/matches"
	notifysvc "github.com/osavenko/matcha/backend/internal/services/notify"
)

type App struct {
	cfg          config.Config
	logger       *zap.Logger
	server       *http.Server
	redis        *goredis.Client
	reconcileJob *reconcile.Job
	httpRouter   http.Handler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	redisClient := redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	relationshipRepo := redisrepo.NewRelationshipRepo(redisClient)
	journalRepo := redisrepo.NewJournalRepo(redisClient)
	dedupRepo := redisrepo.NewDedupRepo(redisClient, cfg.Notify.DedupTTL)

	var sink notifysvc.Sink = notifysvc.NewLogSink(log)
	if strings.TrimSpace(cfg.Notify.TelegramToken) != "" {
		telegramSink, err := tginfra.NewSink(cfg.Notify.TelegramToken, relationshipRepo, log)
		if err != nil {
			log.Warn("telegram sink init failed, falling back to log sink", zap.Error(err))
		} else {
			sink = telegramSink
		}
	}
	notifier := notifysvc.NewDeduper(sink, dedupRepo, log)

	interestService := interestsvc.NewService(interestsvc.Dependencies{
		Store:    relationshipRepo,
		Journal:  journalRepo,
		Notifier: notifier,
		Logger:   log,
	}, interestsvc.Config{
		RetryAttempts: cfg.Retry.Attempts,
		RetryBackoff:  cfg.Retry.Backoff,
	})
	feedService := feedsvc.NewService(relationshipRepo, feedsvc.Config{
		DefaultAgeMin:        cfg.Discovery.AgeMin,
		DefaultAgeMax:        cfg.Discovery.AgeMax,
		DefaultMaxDistanceKM: cfg.Discovery.MaxDistanceKM,
		ResetWindow:          cfg.Discovery.ResetWindow,
	})
	likesService := likessvc.NewService(relationshipRepo, likessvc.Config{
		DefaultAgeMin:        cfg.Discovery.AgeMin,
		DefaultAgeMax:        cfg.Discovery.AgeMax,
		DefaultMaxDistanceKM: cfg.Discovery.MaxDistanceKM,
	})
	matchesService := matchessvc.NewService(relationshipRepo)
	reconcileJob := reconcile.New(relationshipRepo, journalRepo, notifier, cfg.Reconcile.Grace, log)

	RegisterRoutes(r, Dependencies{
		InterestService: interestService,
		FeedService:     feedService,
		LikesService:    likesService,
		MatchesService:  matchesService,
		Logger:          log,
		Config:          cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:          cfg,
		logger:       log,
		server:       server,
		redis:        redisClient,
		reconcileJob: reconcileJob,
		httpRouter:   r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunReconcileLoop runs the journal-replay and repair job on a fixed interval
// until the context is cancelled.
func (a *App) RunReconcileLoop(ctx context.Context) error {
	if a.reconcileJob == nil {
		return nil
	}

	interval := a.cfg.Reconcile.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.reconcileJob.Run(ctx); err != nil {
				a.logger.Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
