package v1

import (
	"github.com/kactica/og-image-generator/internal/usecase"
	"github.com/kactica/og-image-generator/pkg/logger"
)

type V1 struct {
	pipeline     usecase.PipelineUseCase
	contactEmail string
	logger       logger.Interface
}
