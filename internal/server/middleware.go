package server

import (
	"log/slog"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/quorumhq/minute/internal/config"
)

// setupSecurityMiddleware configures and applies security middleware to the router.
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	// HSTS only makes sense in production.
	stsSeconds := int64(0)
	if cfg.Env == config.EnvProduction {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	secureMiddleware := secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
	})
	router.Use(secureMiddleware)

	logger.Debug("Configured security middleware",
		"hsts_enabled", cfg.Env == config.EnvProduction,
		"csp_mode", cfg.CSPMode,
	)
}
