package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/response"
)

// AdminHandler handles the admin analytics endpoints
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

var errNoCaller = errors.New("missing authenticated caller")

// caller extracts the authenticated caller id. The admin service re-checks
// the role itself; the router-level guard alone is not trusted.
func caller(c *fiber.Ctx) (uint, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return 0, errNoCaller
	}
	return userID, nil
}

// adminError maps admin service errors to HTTP responses
func adminError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrAdminRequired) {
		return response.Unauthorized(c, "Only admins can access this resource")
	}
	return response.InternalServerError(c, "Failed to load admin data")
}

// Dashboard returns the headline dashboard stats
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	stats, err := h.adminService.GetDashboardStats(c.Context(), callerID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, stats)
}

// RecentLearners lists the newest learner accounts
func (h *AdminHandler) RecentLearners(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	limit := c.QueryInt("limit", 5)
	learners, err := h.adminService.GetRecentLearners(callerID, limit)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, learners)
}

// TopModules ranks modules by completion rate
func (h *AdminHandler) TopModules(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	limit := c.QueryInt("limit", 3)
	modules, err := h.adminService.GetTopPerformingModules(callerID, limit)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, modules)
}

// Users lists all learner accounts with progress summaries
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	users, err := h.adminService.GetAllUsers(callerID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, users)
}

// UserAnalytics returns cohort analytics and the completion distribution
func (h *AdminHandler) UserAnalytics(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	analytics, err := h.adminService.GetUserAnalytics(callerID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, analytics)
}

// ModuleStatistics returns the per-module cohort breakdown
func (h *AdminHandler) ModuleStatistics(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	stats, err := h.adminService.GetModuleStatistics(callerID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, stats)
}

// Reflections lists all reflections, filterable by module and date range
func (h *AdminHandler) Reflections(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	filters := services.ReflectionFilters{
		ModuleID:  c.QueryInt("moduleId", 0),
		SegmentID: c.QueryInt("segmentId", 0),
	}
	if start := c.Query("startDate"); start != "" {
		if t, err := time.Parse("2006-01-02", start); err == nil {
			filters.StartDate = &t
		}
	}
	if end := c.Query("endDate"); end != "" {
		if t, err := time.Parse("2006-01-02", end); err == nil {
			filters.EndDate = &t
		}
	}

	reflections, err := h.adminService.GetAllReflections(callerID, filters)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, reflections)
}

// ModuleReflections lists one module's reflections
func (h *AdminHandler) ModuleReflections(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return response.BadRequest(c, "Invalid module id")
	}

	reflections, err := h.adminService.GetReflectionsByModule(callerID, moduleID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, reflections)
}

// UserReflections lists one learner's reflections
func (h *AdminHandler) UserReflections(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	reflections, err := h.adminService.GetReflectionsByUser(callerID, uint(userID))
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, reflections)
}

// ReflectionStats returns reflection aggregates
func (h *AdminHandler) ReflectionStats(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	stats, err := h.adminService.GetReflectionStats(callerID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, stats)
}

// ExportReflections returns the flattened reflection export
func (h *AdminHandler) ExportReflections(c *fiber.Ctx) error {
	callerID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "")
	}

	moduleID := c.QueryInt("moduleId", 0)
	exported, err := h.adminService.ExportReflections(callerID, moduleID)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, exported)
}
