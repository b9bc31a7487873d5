package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kactica/og-image-generator/internal/controller/restapi/v1/response"
	"github.com/kactica/og-image-generator/internal/controller/restapi/v1/validate"
	"github.com/kactica/og-image-generator/internal/dto"
	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

// @Summary  	Generate OG image
// @Description Returns a cached image immediately or schedules a render task
// @Tags 		screenshots
// @Produce 	json
// @Param 		url 		  query string true  "Page URL (http/https)"
// @Param 		width 		  query int    false "Image width in pixels"
// @Param 		height 		  query int    false "Image height in pixels"
// @Param 		ttl 		  query int    false "Cache TTL in hours"
// @Param 		force_refresh query bool   false "Skip the cache and re-render"
// @Success 	200 {object} response.GenerateCached "Fresh cached image"
// @Success 	202 {object} response.GenerateAccepted "Render scheduled"
// @Failure 	400 {object} response.Error "Invalid URL or disallowed domain"
// @Failure 	409 {object} response.Error "Scheduling conflict, retry"
// @Failure 	503 {object} response.Error "Storage unavailable"
// @Router 		/v1/generate [get]
func (r *V1) generateImage(ctx *fiber.Ctx) error {
	rawURL := ctx.Query("url")
	if rawURL == "" {
		return errorResponse(ctx, http.StatusBadRequest, "url is required")
	}

	req := dto.RenderRequest{URL: rawURL}

	// width
	widthStr := ctx.Query("width")
	if widthStr != "" {
		width, err := strconv.Atoi(widthStr)
		if err != nil {
			return errorResponse(ctx, http.StatusBadRequest, "width must be a number")
		}
		if width < validate.MinWidth || width > validate.MaxWidth {
			return errorResponse(ctx, http.StatusBadRequest,
				fmt.Sprintf("width must be between %d and %d", validate.MinWidth, validate.MaxWidth))
		}
		req.Width = width
	}

	// height
	heightStr := ctx.Query("height")
	if heightStr != "" {
		height, err := strconv.Atoi(heightStr)
		if err != nil {
			return errorResponse(ctx, http.StatusBadRequest, "height must be a number")
		}
		if height < validate.MinHeight || height > validate.MaxHeight {
			return errorResponse(ctx, http.StatusBadRequest,
				fmt.Sprintf("height must be between %d and %d", validate.MinHeight, validate.MaxHeight))
		}
		req.Height = height
	}

	// ttl, hours on the wire
	ttlStr := ctx.Query("ttl")
	if ttlStr != "" {
		ttlHours, err := strconv.Atoi(ttlStr)
		if err != nil {
			return errorResponse(ctx, http.StatusBadRequest, "ttl must be a number of hours")
		}
		if ttlHours < validate.MinTTLHours || ttlHours > validate.MaxTTLHours {
			return errorResponse(ctx, http.StatusBadRequest,
				fmt.Sprintf("ttl must be between %d and %d hours", validate.MinTTLHours, validate.MaxTTLHours))
		}
		req.TTL = time.Duration(ttlHours) * time.Hour
	}

	req.ForceRefresh = ctx.QueryBool("force_refresh")

	result, err := r.pipeline.RequestImage(ctx.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidURL):
			return errorResponse(ctx, http.StatusBadRequest, "url must be a valid http or https address")
		case errors.Is(err, errs.ErrDomainNotAllowed):
			return errorResponse(ctx, http.StatusBadRequest,
				fmt.Sprintf("domain is not allowed. Contact %s to whitelist your domain", r.contactEmail))
		case errors.Is(err, errs.ErrDedupFailed):
			return errorResponse(ctx, http.StatusConflict, "could not schedule the render, please retry")
		case errors.Is(err, errs.ErrStorageUnavailable):
			r.logger.Error(err, "restapi - v1 - generateImage")

			return errorResponse(ctx, http.StatusServiceUnavailable, "storage problems")
		default:
			r.logger.Error(err, "restapi - v1 - generateImage")

			return errorResponse(ctx, http.StatusInternalServerError, "internal error")
		}
	}

	if result.Status == dto.ResultCached {
		return ctx.Status(http.StatusOK).JSON(response.GenerateCached{
			Status:   result.Status,
			ImageURL: result.ImageURL,
		})
	}

	return ctx.Status(http.StatusAccepted).JSON(response.GenerateAccepted{
		Status:         result.Status,
		TaskID:         result.TaskID.String(),
		CheckStatusURL: "/v1/status/" + result.TaskID.String(),
	})
}

// @Summary 	Get render task status
// @Description Reports the state of a scheduled render task
// @Tags 		screenshots
// @Produce 	json
// @Param 		task_id path string true "Task ID(uuid)"
// @Success 	200 {object} response.TaskStatus
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Task not found"
// @Failure 	503 {object} response.Error "Storage unavailable"
// @Router 		/v1/status/{task_id} [get]
func (r *V1) getTaskStatus(ctx *fiber.Ctx) error {
	taskID, err := uuid.Parse(ctx.Params("task_id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid task id")
	}

	status, err := r.pipeline.GetStatus(ctx.UserContext(), taskID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "task not found")
		}
		r.logger.Error(err, "restapi - v1 - getTaskStatus")

		return errorResponse(ctx, http.StatusServiceUnavailable, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.TaskStatus{
		TaskID:       taskID.String(),
		Status:       string(status.Status),
		ImageURL:     status.ImageURL,
		ErrorMessage: status.ErrorMessage,
	})
}

// @Summary 	Redirect to rendered image
// @Description Redirects to the stored image once the task completes
// @Tags 		screenshots
// @Param 		task_id path string true "Task ID(uuid)"
// @Success 	307 "Redirect to the image URL"
// @Success 	202 {object} response.GenerateAccepted "Still rendering"
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Task or image not found"
// @Failure 	503 {object} response.Error "Storage unavailable"
// @Router 		/v1/image/{task_id} [get]
func (r *V1) redirectToImage(ctx *fiber.Ctx) error {
	taskID, err := uuid.Parse(ctx.Params("task_id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid task id")
	}

	status, err := r.pipeline.GetStatus(ctx.UserContext(), taskID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "task not found")
		}
		r.logger.Error(err, "restapi - v1 - redirectToImage")

		return errorResponse(ctx, http.StatusServiceUnavailable, "storage problems")
	}

	switch status.Status {
	case entity.Completed:
		if status.ImageURL == nil {
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		}

		return ctx.Redirect(*status.ImageURL, http.StatusTemporaryRedirect)
	case entity.Failed:
		return errorResponse(ctx, http.StatusNotFound, "render failed")
	default:
		return ctx.Status(http.StatusAccepted).JSON(response.GenerateAccepted{
			Status:         dto.ResultProcessing,
			TaskID:         taskID.String(),
			CheckStatusURL: "/v1/status/" + taskID.String(),
		})
	}
}
