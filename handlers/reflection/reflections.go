package reflection

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/response"
	"github.com/kujua-learning/kujua-api/utils/validation"
)

// ReflectionHandler handles learner reflection endpoints
type ReflectionHandler struct {
	reflectionService *services.ReflectionService
	validator         *validation.Validator
}

// NewReflectionHandler creates a new reflection handler
func NewReflectionHandler(reflectionService *services.ReflectionService, validator *validation.Validator) *ReflectionHandler {
	return &ReflectionHandler{
		reflectionService: reflectionService,
		validator:         validator,
	}
}

// Submit creates or replaces the caller's reflection for a segment
func (h *ReflectionHandler) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.SubmitReflectionInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	reflection, err := h.reflectionService.Submit(userID, req)
	if err != nil {
		return response.InternalServerError(c, "Failed to submit reflection")
	}

	return response.Created(c, reflection)
}

// MyReflections lists the caller's reflections, newest first
func (h *ReflectionHandler) MyReflections(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	reflections, err := h.reflectionService.GetUserReflections(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load reflections")
	}

	return response.Success(c, reflections)
}

// GetBySegment returns the caller's reflection for one module segment
func (h *ReflectionHandler) GetBySegment(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return response.BadRequest(c, "Invalid module id")
	}
	segmentID, err := c.ParamsInt("segmentId")
	if err != nil {
		return response.BadRequest(c, "Invalid segment id")
	}

	reflection, err := h.reflectionService.GetBySegment(userID, moduleID, segmentID)
	if err != nil {
		if errors.Is(err, services.ErrReflectionNotFound) {
			return response.NotFound(c, "Reflection not found")
		}
		return response.InternalServerError(c, "Failed to load reflection")
	}

	return response.Success(c, reflection)
}
