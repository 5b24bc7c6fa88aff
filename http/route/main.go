package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/antartrc-jpg/gatebook/http/controller"
	middlewares "github.com/antartrc-jpg/gatebook/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)
	r.GET("/health/full", ctrl.HealthFull)

	fileRoutes := r.Group("/files")
	{
		fileRoutes.POST("/presign", ctrl.PresignFile)
		fileRoutes.POST("/confirm", ctrl.ConfirmFile)
		fileRoutes.GET("/recent", ctrl.ListRecentFiles)
		fileRoutes.GET("/:id/download", ctrl.DownloadFile)
		fileRoutes.DELETE("/:id", ctrl.DeleteFile)
		fileRoutes.PATCH("/:id/retention", ctrl.SetFileRetention)
	}

	return r
}
