package progress

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/response"
	"github.com/kujua-learning/kujua-api/utils/validation"
)

// ProgressHandler handles course progress endpoints
type ProgressHandler struct {
	progressService *services.ProgressService
	validator       *validation.Validator
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *services.ProgressService, validator *validation.Validator) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		validator:       validator,
	}
}

// Get returns the caller's progress, initializing it on first access
func (h *ProgressHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	progress, err := h.progressService.GetOrCreateProgress(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load progress")
	}

	return response.Success(c, progress)
}

// Start activates the course for the caller. Idempotent.
func (h *ProgressHandler) Start(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	progress, err := h.progressService.StartCourse(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to start course")
	}

	return response.Success(c, progress)
}

// UpdateModuleRequest carries a caller-reported module progress percentage
type UpdateModuleRequest struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}

// UpdateModule sets one module's progress percentage
func (h *ProgressHandler) UpdateModule(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return response.BadRequest(c, "Invalid module id")
	}

	var req UpdateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	progress, err := h.progressService.UpdateModuleProgress(userID, moduleID, req.Progress)
	if err != nil {
		return progressError(c, err)
	}

	return response.Success(c, progress)
}

// UpdatePartRequest toggles one part's completion
type UpdatePartRequest struct {
	Completed bool `json:"completed"`
}

// UpdatePart marks one part complete or incomplete
func (h *ProgressHandler) UpdatePart(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return response.BadRequest(c, "Invalid module id")
	}
	partID, err := c.ParamsInt("partId")
	if err != nil {
		return response.BadRequest(c, "Invalid part id")
	}

	var req UpdatePartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	progress, err := h.progressService.UpdatePartCompletion(userID, moduleID, partID, req.Completed)
	if err != nil {
		return progressError(c, err)
	}

	return response.Success(c, progress)
}

// SubmitAssessmentRequest carries one assessment attempt
type SubmitAssessmentRequest struct {
	Score          int `json:"score" validate:"gte=0,lte=100"`
	TotalQuestions int `json:"totalQuestions" validate:"gte=1"`
	CorrectAnswers int `json:"correctAnswers" validate:"gte=0"`
}

// SubmitAssessment records an assessment attempt for a module
func (h *ProgressHandler) SubmitAssessment(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return response.BadRequest(c, "Invalid module id")
	}

	var req SubmitAssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	progress, err := h.progressService.SubmitAssessment(userID, moduleID, req.Score, req.TotalQuestions, req.CorrectAnswers)
	if err != nil {
		return progressError(c, err)
	}

	return response.Success(c, progress)
}

// GetCertificate returns the earned certificate
func (h *ProgressHandler) GetCertificate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	cert, err := h.progressService.GetCertificate(userID)
	if err != nil {
		return progressError(c, err)
	}

	return response.Success(c, cert)
}

// progressError maps service errors to HTTP responses
func progressError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrProgressNotFound):
		return response.NotFound(c, "Progress record not found")
	case errors.Is(err, services.ErrModuleNotFound):
		return response.NotFound(c, "Module not found")
	case errors.Is(err, services.ErrPartNotFound):
		return response.NotFound(c, "Part not found")
	case errors.Is(err, services.ErrAssessmentLocked):
		return response.BadRequest(c, "Please complete all module content before taking the assessment")
	case errors.Is(err, services.ErrCertificateNotFound):
		return response.NotFound(c, "Certificate not available. Complete all 4 modules with 70% or above to earn your certificate.")
	default:
		return response.InternalServerError(c, "Failed to update progress")
	}
}
