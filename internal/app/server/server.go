package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/report"
	"leavedesk/internal/domain/slack"
	"leavedesk/internal/domain/user"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/crypto"
	"leavedesk/internal/platform/db"
	authhandler "leavedesk/internal/transport/http/handlers/auth"
	calendarhandler "leavedesk/internal/transport/http/handlers/calendar"
	leavehandler "leavedesk/internal/transport/http/handlers/leave"
	reportshandler "leavedesk/internal/transport/http/handlers/reports"
	slackhandler "leavedesk/internal/transport/http/handlers/slack"
	usershandler "leavedesk/internal/transport/http/handlers/users"
	"leavedesk/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("encryption key invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	userStore := user.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	slackStore := slack.NewStore(pool)
	calendarStore := calendar.NewStore(pool, cipher)

	users := user.NewService(userStore)
	leaves := leave.NewService(leaveStore)
	slacks := slack.NewService(slackStore, slack.NewPoster())

	factory := calendar.NewClientFactory(calendarStore, calendar.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})
	calendars := calendar.NewService(calendarStore, factory, cfg.CalendarTimezone)
	reports := report.NewService(slackStore)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authHandler := authhandler.NewHandler(users, cfg.JWTSecret)
	leaveHandler := leavehandler.NewHandler(leaves, users, slacks, calendars)
	usersHandler := usershandler.NewHandler(users)
	slackHandler := slackhandler.NewHandler(slackStore, slacks)
	calendarHandler := calendarhandler.NewHandler(calendarStore, factory, cfg.JWTSecret)
	reportsHandler := reportshandler.NewHandler(reports)

	router.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		calendarHandler.RegisterCallbackRoute(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CronSecret(cfg.CronSecret))
			slackHandler.RegisterCronRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWTSecret))
			authHandler.RegisterProfileRoutes(r)
			leaveHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				usersHandler.RegisterRoutes(r)
				slackHandler.RegisterRoutes(r)
				calendarHandler.RegisterRoutes(r)
				reportsHandler.RegisterRoutes(r)
			})
		})
	})

	log.Printf("leavedesk server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
