package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// ShiftsHandler manages doctor shifts.
type ShiftsHandler struct {
	service *service.ShiftService
}

// NewShiftsHandler constructs handler.
func NewShiftsHandler(shiftService *service.ShiftService) *ShiftsHandler {
	return &ShiftsHandler{service: shiftService}
}

// SaveMine PUT /api/shifts/me.
func (h *ShiftsHandler) SaveMine(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SaveShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	shift, err := h.service.SaveMine(c.UserContext(), actor, service.ShiftInput{
		ShiftStart:     req.ShiftStart,
		ShiftEnd:       req.ShiftEnd,
		Status:         req.Status,
		ResponseStatus: req.ResponseStatus,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": shiftResponse(shift)})
}

// GetMine GET /api/shifts/me.
func (h *ShiftsHandler) GetMine(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	shift, err := h.service.GetMine(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": shiftResponse(shift)})
}

// ListOnDuty GET /api/shifts/on-duty.
func (h *ShiftsHandler) ListOnDuty(c *fiber.Ctx) error {
	shifts, err := h.service.ListOnDuty(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(shifts, shiftResponse)})
}
