package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/antartrc-jpg/gatebook/http/controller"
)

type Middlewares struct {
	CORSMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)

	return &Middlewares{
		CORSMiddleware: cors,
	}, nil
}
