package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"unidos-api/config"
	"unidos-api/controllers"
	"unidos-api/database"
	"unidos-api/jobs"
	"unidos-api/repositories"
	"unidos-api/routes"
	"unidos-api/services"
)

func main() {
	cfg := config.Load()

	db, err := database.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate the database: %v", err)
	}
	if err := database.Seed(db); err != nil {
		log.Fatalf("Failed to seed the database: %v", err)
	}

	mongoDB, err := database.ConnectMongo(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the document store: %v", err)
	}

	ledger := repositories.NewLedgerRepository(db)
	eventStore := repositories.NewEventStore(mongoDB)
	megaStore := repositories.NewMegaEventStore(mongoDB)
	notifier := services.NewEmailService(cfg)

	eventService := services.NewEventService(ledger, eventStore, notifier)
	megaService := services.NewMegaEventService(ledger, megaStore, notifier)

	sweep := jobs.NewEnrollmentSweepJob(eventService, time.Hour)
	sweep.Start()
	defer sweep.Stop()

	router := gin.Default()
	routes.SetupRoutes(router, routes.Controllers{
		Auth:       controllers.NewAuthController(db, cfg),
		Events:     controllers.NewEventController(eventService),
		MegaEvents: controllers.NewMegaEventController(megaService),
		Companies:  controllers.NewCompanyController(db),
	}, cfg.JWTSecret)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
