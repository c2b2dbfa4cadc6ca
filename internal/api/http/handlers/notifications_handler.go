package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/notification"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// EmergencyNotifier runs one synchronous fan-out.
type EmergencyNotifier interface {
	SendEmergencyNotifications(ctx context.Context, alert notification.Alert) (*notification.DispatchResult, error)
}

// NotificationsHandler exposes the emergency fan-out as a JSON function endpoint.
type NotificationsHandler struct {
	notifier EmergencyNotifier
	now      func() time.Time
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifier EmergencyNotifier) *NotificationsHandler {
	return &NotificationsHandler{notifier: notifier, now: time.Now}
}

// Send POST /send-emergency-notifications.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendNotificationsRequest
	if err := c.BodyParser(&req); err != nil {
		return functionError(c, http.StatusBadRequest, "invalid JSON body")
	}
	req.EmergencyID = strings.TrimSpace(req.EmergencyID)
	req.Location = strings.TrimSpace(req.Location)
	req.Condition = strings.TrimSpace(req.Condition)
	if req.EmergencyID == "" || req.Location == "" || req.Condition == "" {
		return functionError(c, http.StatusBadRequest, "Missing required fields: emergencyId, location, condition")
	}

	alert := notification.Alert{
		EmergencyID: req.EmergencyID,
		Location:    req.Location,
		Condition:   req.Condition,
		Priority:    strings.TrimSpace(req.Priority),
		OccurredAt:  h.now(),
	}
	if alert.Priority == "" {
		alert.Priority = domain.DefaultEmergencyPriority
	}
	if req.PatientName != nil {
		alert.PatientName = strings.TrimSpace(*req.PatientName)
	}

	result, err := h.notifier.SendEmergencyNotifications(c.UserContext(), alert)
	if err != nil {
		de := apperrors.ToDomainError(err)
		body := dto.FunctionErrorResponse{Success: false, Error: de.Message}
		if de.Code == apperrors.CodeNoRecipients {
			zero := 0
			body.NotificationsSent = &zero
		}
		return c.Status(de.HTTPStatus).JSON(body)
	}

	patientName := alert.PatientName
	if patientName == "" {
		patientName = "Unknown"
	}
	return c.JSON(dto.SendNotificationsResponse{
		Success:           result.Success(),
		NotificationsSent: result.SuccessfulCount,
		TotalDoctors:      result.TotalRecipients,
		DoctorEmailsSent:  result.Delivered(),
		Message:           result.Summary(),
		EmailResults:      result.Outcomes,
		EmergencyDetails: dto.EmergencyDetails{
			EmergencyID: alert.EmergencyID,
			PatientName: patientName,
			Location:    alert.Location,
			Condition:   alert.Condition,
			Priority:    alert.Priority,
		},
	})
}

func functionError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.FunctionErrorResponse{Success: false, Error: message})
}
