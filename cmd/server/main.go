package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/cache"
	"github.com/iliyamo/identity-service/internal/config"
	"github.com/iliyamo/identity-service/internal/database"
	"github.com/iliyamo/identity-service/internal/handler"
	"github.com/iliyamo/identity-service/internal/queue"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/router"
	queuepub "github.com/iliyamo/identity-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load() // Load environment config

	// Open MySQL and build the repositories on top of it.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)

	// Redis backs the token verification cache.  A nil client means the
	// cache is absent and every request verifies against the database.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, token verification cache disabled")
	}
	verifyCache := cache.New(rdb, cfg.CacheTTL)

	// The auth core: lifecycle issues sessions and one-time tokens (the
	// mail notifier publishes to the mail queue), resolver turns request
	// credentials into principals.
	lifecycle := auth.NewLifecycle(users, sessions, queuepub.MailNotifier())
	resolver := auth.NewResolver(users, sessions, verifyCache)

	sessionHandler := handler.NewSessionHandler(users, sessions, lifecycle, cfg.SessionTTL, queuepub.ScheduleSessionCleanup)
	userHandler := handler.NewUserHandler(users, sessions, lifecycle, cfg.BcryptCost)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterSessions(e, sessionHandler, resolver)
	router.RegisterUsers(e, userHandler, resolver)

	// Background consumers: expired-session cleanup and outgoing mail.
	// Both reconnect on broker failure and never take the API down.
	go queue.StartSessionCleanupConsumer(lifecycle)
	go queue.StartMailConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
