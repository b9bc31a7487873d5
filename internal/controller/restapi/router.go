package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/kactica/og-image-generator/config"
	v1 "github.com/kactica/og-image-generator/internal/controller/restapi/v1"
	"github.com/kactica/og-image-generator/internal/usecase"
	"github.com/kactica/og-image-generator/pkg/logger"
)

// @title OG Image Generator
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewRouter(app *fiber.App, cfg *config.Config, pl usecase.PipelineUseCase, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewScreenshotRoutes(apiV1Group, pl, cfg.Screenshot.ContactEmail, l)
	}
}
