package controller

import (
	"time"

	"github.com/antartrc-jpg/gatebook/config"
	"github.com/antartrc-jpg/gatebook/infra"
	"github.com/antartrc-jpg/gatebook/repository"
	"github.com/antartrc-jpg/gatebook/service"
	"github.com/antartrc-jpg/gatebook/validator"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Lifecycle  *service.FileLifecycleService
}

func NewController(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}

	env := cfg.EnvConfig
	opts := service.Options{
		Policy: &validator.Policy{
			MaxBytes:    env.Upload.MaxBytes,
			DeclaredCap: env.Upload.DeclaredCap,
			AllowedMIME: env.Upload.AllowedMIME,
		},
		KeyPrefix:      env.Upload.KeyPrefix,
		PresignExpires: time.Duration(env.Upload.PresignExpires) * time.Second,
		VerifySHA256:   env.Upload.VerifySHA256,
	}

	var pub service.AuditPublisher
	if infra.Produce != nil {
		pub = infra.Produce.AuditService
	}

	lifecycle := service.NewFileLifecycleService(opts, infra.Minio, repo, pub, infra.Logger)

	return &Controller{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
		Lifecycle:  lifecycle,
	}
}
