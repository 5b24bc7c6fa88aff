package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/antartrc-jpg/gatebook/config"
	"github.com/antartrc-jpg/gatebook/http/controller"
	routes "github.com/antartrc-jpg/gatebook/http/route"
	infraPkg "github.com/antartrc-jpg/gatebook/infra"
	"github.com/antartrc-jpg/gatebook/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()

	ctx := context.Background()
	shutdownTelemetry := infraPkg.InitTelemetry(ctx, cfg.EnvConfig)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}()

	infra := infraPkg.InitInfra(cfg)
	if err := infra.Minio.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to ensure bucket: %v", err)
	}

	repo := repository.InitRepository(infra)
	ctrl := controller.NewController(cfg, infra, repo)
	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on", cfg.EnvConfig.ListenAddr)
	if err := router.Run(cfg.EnvConfig.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
