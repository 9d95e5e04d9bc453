package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brk3/habitkit/internal/config"
	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/brk3/habitkit/pkg/ident"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
	limiter       *ipRateLimiter

	factory habit.Factory
	loc     *time.Location
	now     func() time.Time
}

// New wires a server over store. Habit orders continue from the largest
// order already stored so new habits always sort last.
func New(cfg *config.Config, store storage.Store) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	maxOrder, err := store.MaxOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to read max order: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		factory: habit.NewFactory(ident.NewSequence(maxOrder)),
		loc:     loc,
		now:     time.Now,
	}
	s.factory.Now = s.clock
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	if cfg.AuthEnabled {
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	}

	if err := s.refreshActiveHabitGauges(); err != nil {
		logger.Warn("Failed to initialise active habit metrics", "error", err)
	}
	return s, nil
}

// clock returns the current instant in the server's calendar zone.
func (s *Server) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.simpleLogin)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)
			r.Get("/token", s.getAPIToken)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{hash}", s.deleteAPIKey)
			})
		})
	}

	r.Group(func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
			r.Use(s.userAwareMetricsMiddleware)
		}

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", s.listHabits)
			r.Post("/", s.createHabit)
			r.Route("/{habit_id}", func(r chi.Router) {
				r.Get("/", s.getHabit)
				r.Patch("/", s.updateHabit)
				r.Delete("/", s.deleteHabit)
				r.Post("/archive", s.archiveHabit)
				r.Post("/unarchive", s.unarchiveHabit)
				r.Post("/completions", s.completeHabit)
				r.Delete("/completions/{date}", s.uncompleteHabit)
				r.Get("/streak", s.getStreak)
				r.Get("/statistics", s.getStatistics)
			})
		})

		r.Get("/today", s.getToday)
		r.Get("/week", s.getWeek)
		r.Get("/calendar", s.getCalendar)
		r.Get("/reminders", s.getReminders)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Post("/", s.createCategory)
			r.Delete("/{category_id}", s.deleteCategory)
		})
	})

	return r
}

// requestLogger replaces chi's stdlib-log middleware.Logger with one that
// writes through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Get().LogAttrs(r.Context(), slog.LevelInfo, "Request completed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
