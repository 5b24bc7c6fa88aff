package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/antartrc-jpg/gatebook/utils"
)

func (ctrl *Controller) Health(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"status":  "ok",
		"service": ctrl.Config.EnvConfig.Grafana.ServiceName,
	})
}

// HealthFull probes each dependency and reports degraded instead of failing.
func (ctrl *Controller) HealthFull(c *gin.Context) {
	ctx := c.Request.Context()
	status := "ok"
	checks := gin.H{}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := ctrl.Infra.Postgres.Ping(probeCtx); err != nil {
		checks["db"] = "err: " + err.Error()
		status = "degraded"
	} else {
		checks["db"] = "ok"
	}

	if err := ctrl.Infra.Minio.Ping(probeCtx); err != nil {
		checks["s3"] = "err: " + err.Error()
		status = "degraded"
	} else {
		checks["s3"] = "ok"
		if version, err := ctrl.Infra.Minio.ServerVersion(probeCtx); err == nil && version != "" {
			checks["s3_version"] = version
		}
	}

	if err := ctrl.Infra.Redis.Ping(probeCtx); err != nil {
		checks["redis"] = "err: " + err.Error()
		status = "degraded"
	} else {
		checks["redis"] = "ok"
	}

	utils.JSON200(c, gin.H{
		"status": status,
		"checks": checks,
	})
}
