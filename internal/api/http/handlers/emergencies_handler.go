package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// EmergenciesHandler manages emergencies for signed-in staff and doctors.
type EmergenciesHandler struct {
	service *service.EmergencyService
}

// NewEmergenciesHandler constructs handler.
func NewEmergenciesHandler(emergencyService *service.EmergencyService) *EmergenciesHandler {
	return &EmergenciesHandler{service: emergencyService}
}

// Create POST /api/emergencies. The doctor fan-out runs in the background.
func (h *EmergenciesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateEmergencyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	emergency, err := h.service.Create(c.UserContext(), actor, service.EmergencyCreateInput{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Location:    req.Location,
		Condition:   req.Condition,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": emergencyResponse(emergency)})
}

// ListActive GET /api/emergencies/active.
func (h *EmergenciesHandler) ListActive(c *fiber.Ctx) error {
	emergencies, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(emergencies, emergencyResponse)})
}

// Resolve POST /api/emergencies/:id/resolve.
func (h *EmergenciesHandler) Resolve(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.Resolve(c.UserContext(), c.Params("id"), service.ResolvedFromDashboard, &actor)
	if err != nil {
		return err
	}
	if !outcome.Found {
		return apperrors.NewNotFound("emergency", map[string]any{"id": outcome.ID})
	}
	return c.JSON(fiber.Map{"data": dto.ResolveEmergencyResponse{ID: outcome.ID, Resolved: true, Found: true}})
}
