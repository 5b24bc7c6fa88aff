package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/antartrc-jpg/gatebook/config"
	infraPkg "github.com/antartrc-jpg/gatebook/infra"
	"github.com/antartrc-jpg/gatebook/repository"
	"github.com/antartrc-jpg/gatebook/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()

	var (
		thresholdMinutes int
		intervalSeconds  int
		once             bool
		onlyFileID       string
	)

	rootCmd := &cobra.Command{
		Use:   "sweeper",
		Short: "Retention sweeper: deletes expired, non-retained file objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, thresholdMinutes, intervalSeconds, once, onlyFileID)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&thresholdMinutes, "threshold-minutes", cfg.EnvConfig.Sweeper.ThresholdMinutes, "age in minutes after which non-retained files expire")
	flags.IntVar(&intervalSeconds, "interval-seconds", cfg.EnvConfig.Sweeper.IntervalSeconds, "seconds between sweep passes")
	flags.BoolVar(&once, "once", false, "run a single sweep pass and exit")
	flags.StringVar(&onlyFileID, "only-file-id", "", "sweep exactly this file id, regardless of age")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Sweeper failed: %v", err)
	}
}

func run(cfg *config.Config, thresholdMinutes, intervalSeconds int, once bool, onlyFileID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := infraPkg.InitTelemetry(ctx, cfg.EnvConfig)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	// The sweeper needs only the database and the blob store.
	logger := infraPkg.InitLoggerClient(cfg.EnvConfig)
	postgres := infraPkg.InitPostgresClient(cfg.EnvConfig)
	minio := infraPkg.InitMinioClient(cfg.EnvConfig)
	repo := repository.NewRepository(postgres.DB)

	sweeper := service.NewRetentionSweeper(minio, repo, logger)
	threshold := time.Duration(thresholdMinutes) * time.Minute

	var onlyID *uuid.UUID
	if onlyFileID != "" {
		id, err := uuid.Parse(onlyFileID)
		if err != nil {
			return err
		}
		onlyID = &id
	}

	if once || onlyID != nil {
		n, err := sweeper.Sweep(ctx, threshold, onlyID)
		if err != nil {
			return err
		}
		log.Printf("Cleaned %d file(s)", n)
		return nil
	}

	sweeper.Run(ctx, threshold, time.Duration(intervalSeconds)*time.Second)
	return nil
}
