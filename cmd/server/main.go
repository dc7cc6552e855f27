package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/biletera/client-service/internal/config"
	"github.com/biletera/client-service/internal/database"
	"github.com/biletera/client-service/internal/handler"
	"github.com/biletera/client-service/internal/inventory"
	"github.com/biletera/client-service/internal/queue"
	"github.com/biletera/client-service/internal/repository"
	"github.com/biletera/client-service/internal/router"
	"github.com/biletera/client-service/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load(".env")

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is best effort: a nil client just disables metadata caching.
	cache := config.NewRedisClient()
	if cache == nil {
		log.Print("redis unavailable, inventory metadata caching disabled")
	}

	gw := inventory.New(cfg.InventoryBaseURL, cfg.InventoryTimeout, cache)
	svc := service.NewClientService(repository.NewClientRepo(db), gw)
	h := handler.NewClientHandler(svc)

	// Drain partial-failure reports into logs/reconcile.log for the
	// operator sweep.
	go func() {
		if err := queue.StartReconcileConsumer(); err != nil {
			log.Printf("reconcile consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterClients(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
