package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// HelpRequestsHandler exposes the help request workflow.
type HelpRequestsHandler struct {
	service *service.HelpRequestService
}

// NewHelpRequestsHandler constructs handler.
func NewHelpRequestsHandler(helpService *service.HelpRequestService) *HelpRequestsHandler {
	return &HelpRequestsHandler{service: helpService}
}

// Create POST /api/help-requests.
func (h *HelpRequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateHelpRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.Create(c.UserContext(), actor, service.HelpRequestInput{
		RequestType: req.RequestType,
		Urgency:     req.Urgency,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": helpRequestResponse(created)})
}

// List GET /api/help-requests?mine=&status=.
func (h *HelpRequestsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	mine, _ := strconv.ParseBool(c.Query("mine"))
	requests, err := h.service.List(c.UserContext(), actor, service.HelpRequestListFilter{
		Mine:     mine,
		Statuses: parseList(c.Query("status")),
		Limit:    parseInt(c.Query("limit"), 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mapSlice(requests, helpRequestResponse)})
}

// Assign POST /api/help-requests/:id/assign.
func (h *HelpRequestsHandler) Assign(c *fiber.Ctx) error {
	return h.transition(c, func(actor service.Actor) (*domain.HelpRequest, error) {
		return h.service.Assign(c.UserContext(), actor, c.Params("id"))
	})
}

// Resolve POST /api/help-requests/:id/resolve.
func (h *HelpRequestsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveHelpRequestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return h.transition(c, func(actor service.Actor) (*domain.HelpRequest, error) {
		return h.service.Resolve(c.UserContext(), actor, c.Params("id"), req.ResponseNotes)
	})
}

// Cancel POST /api/help-requests/:id/cancel.
func (h *HelpRequestsHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, func(actor service.Actor) (*domain.HelpRequest, error) {
		return h.service.Cancel(c.UserContext(), actor, c.Params("id"))
	})
}

func (h *HelpRequestsHandler) transition(c *fiber.Ctx, apply func(service.Actor) (*domain.HelpRequest, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updated, err := apply(actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": helpRequestResponse(updated)})
}
