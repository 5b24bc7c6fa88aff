package middlewares

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/antartrc-jpg/gatebook/config"
)

// CORSMiddleware builds the CORS policy from ALLOWED_DOMAINS. "*" allows any
// origin.
func CORSMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	domains := strings.TrimSpace(cfg.CORS.AllowDomains)
	if domains == "" || domains == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		var origins []string
		for _, d := range strings.Split(domains, ",") {
			if d = strings.TrimSpace(d); d != "" {
				origins = append(origins, d)
			}
		}
		corsConfig.AllowOrigins = origins
	}

	return cors.New(corsConfig)
}
