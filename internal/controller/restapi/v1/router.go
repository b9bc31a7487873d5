package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kactica/og-image-generator/internal/usecase"
	"github.com/kactica/og-image-generator/pkg/logger"
)

func NewScreenshotRoutes(apiV1Group fiber.Router, pl usecase.PipelineUseCase, contactEmail string, l logger.Interface) {
	r := &V1{pipeline: pl, contactEmail: contactEmail, logger: l}

	{
		// API
		apiV1Group.Get("/generate", r.generateImage)
		apiV1Group.Get("/status/:task_id", r.getTaskStatus)
		apiV1Group.Get("/image/:task_id", r.redirectToImage)

		// UI
		apiV1Group.Get("/", r.showUI)
	}
}
