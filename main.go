package main

import (
	"net/http"

	"crewboard/config"
	"crewboard/database"
	"crewboard/handlers"
	"crewboard/logger"
	"crewboard/middleware"
	"crewboard/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	middleware.SetJWTSecret(cfg.JWTSecret)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}

	teamService := services.NewTeamService(db)
	missionService := services.NewMissionService(db)
	reputationService := services.NewReputationService(db)
	userService := services.NewUserService(db)

	teamHandler := handlers.NewTeamHandler(teamService, log)
	missionHandler := handlers.NewMissionHandler(missionService, log)
	userHandler := handlers.NewUserHandler(userService, reputationService, log)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.WebhookSecret, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(log))
	router.Use(chimiddleware.Recoverer)

	// Identity sync from the provider; gated by the shared webhook secret.
	router.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	// Everything else requires a resolved identity.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(db))

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.Create)
			r.Get("/", teamHandler.List)
			r.Get("/search", teamHandler.Search)
			r.Put("/{teamID}", teamHandler.Edit)
			r.Delete("/{teamID}", teamHandler.Delete)
			r.Post("/{teamID}/join", teamHandler.Join)
			r.Put("/{teamID}/whitelist", teamHandler.UpdateWhitelist)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", userHandler.Search)
			r.Get("/me/team", teamHandler.MyTeam)
			r.Get("/me/points", missionHandler.Points)
			r.Get("/me/mission-status", missionHandler.Status)
			r.Post("/{userID}/reputation", userHandler.Vote)
		})

		r.Route("/missions", func(r chi.Router) {
			r.Post("/claim/hourly", missionHandler.ClaimHourly)
			r.Post("/claim/daily", missionHandler.ClaimDaily)
		})
	})

	log.Infow("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}
