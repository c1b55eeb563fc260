package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Handlers       *Handlers
	Leaderboard    *LeaderboardWSHandler
	Verifier       IdentityVerifier
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h := cfg.Handlers

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.Leaderboard != nil {
		r.Get("/ws/leaderboard", cfg.Leaderboard.ServeWS)
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Public content.
		api.Get("/levels", h.Levels)
		api.Get("/achievements", h.AchievementDefinitions)
		api.Get("/leaderboard", h.Leaderboard)
		api.Get("/challenge/leaderboard", h.ChallengeLeaderboard)

		api.Group(func(authed chi.Router) {
			authed.Use(RequireIdentity(cfg.Verifier))

			authed.Post("/users/register", h.Register)
			authed.Route("/users/me", func(me chi.Router) {
				me.Get("/", h.Me)
				me.Patch("/", h.UpdateProfile)
				me.Post("/reset", h.ResetGameData)
				me.Get("/progress", h.Progress)
				me.Get("/coins", h.Coins)
				me.Get("/achievements", h.Achievements)
				me.Post("/achievements", h.ReportAchievement)
			})

			authed.Get("/levels/{levelID}", h.LevelDetail)
			authed.Route("/levels/{levelID}/animals/{index}", func(slot chi.Router) {
				slot.Post("/answer", h.SubmitAnswer)
				slot.Post("/hint", h.BuyHint)
				slot.Post("/letter", h.RevealLetter)
			})

			authed.Get("/challenge/today", h.TodayChallenge)
			authed.Post("/challenge/today/animals/{index}/answer", h.SubmitChallengeAnswer)
		})
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
