package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// TreatmentsHandler manages the treatment queue.
type TreatmentsHandler struct {
	service *service.TreatmentService
}

// NewTreatmentsHandler constructs handler.
func NewTreatmentsHandler(treatmentService *service.TreatmentService) *TreatmentsHandler {
	return &TreatmentsHandler{service: treatmentService}
}

// Assign POST /api/treatments.
func (h *TreatmentsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTreatmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.Assign(c.UserContext(), service.TreatmentCreateInput{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		DoctorID:    req.DoctorID,
		Department:  req.Department,
		Priority:    req.Priority,
		RoomNumber:  req.RoomNumber,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": treatmentResponse(entry)})
}

// List GET /api/treatments.
func (h *TreatmentsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	includeCompleted, _ := strconv.ParseBool(c.Query("include_completed"))
	entries, err := h.service.ListFor(c.UserContext(), actor, includeCompleted, parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(entries, treatmentResponse)})
}

// UpdateStatus PATCH /api/treatments/:id/status.
func (h *TreatmentsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTreatmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.AdvanceStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": treatmentResponse(entry)})
}
