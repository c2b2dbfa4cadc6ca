package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// EmergencyResolver performs the resolve transition.
type EmergencyResolver interface {
	Resolve(ctx context.Context, id, source string, actor *service.Actor) (service.ResolveOutcome, error)
}

var resolvePage = template.Must(template.New("resolve").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; text-align: center; }
    .card { border-radius: 8px; padding: 30px; border: 1px solid #e5e7eb; }
    .ok { background: #f0fdf4; border-color: #22c55e; }
    .fail { background: #fef2f2; border-color: #ef4444; }
    code { background: #f3f4f6; padding: 2px 6px; border-radius: 4px; }
  </style>
</head>
<body>
  <div class="card {{if .OK}}ok{{else}}fail{{end}}">
    <h1>{{.Title}}</h1>
    <p>{{.Message}}</p>
    {{if .ID}}<p>Emergency ID: <code>{{.ID}}</code></p>{{end}}
    {{if .Detail}}<p><small>{{.Detail}}</small></p>{{end}}
  </div>
</body>
</html>`))

type resolvePageData struct {
	Title   string
	Message string
	ID      string
	Detail  string
	OK      bool
}

// ResolveHandler serves the resolve link embedded in alert emails. The endpoint carries no
// authentication; anyone holding an emergency id can resolve it.
type ResolveHandler struct {
	resolver EmergencyResolver
	logger   *zap.Logger
}

// NewResolveHandler constructs handler.
func NewResolveHandler(resolver EmergencyResolver, logger *zap.Logger) *ResolveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolveHandler{resolver: resolver, logger: logger}
}

// Resolve GET|POST /resolve-emergency?id=.
func (h *ResolveHandler) Resolve(c *fiber.Ctx) error {
	id := c.Query("id")
	outcome, err := h.resolver.Resolve(c.UserContext(), id, service.ResolvedFromEmailLink, nil)
	if err != nil {
		de := apperrors.ToDomainError(err)
		if de.Code == apperrors.CodeMissingParameter {
			return h.render(c, http.StatusBadRequest, resolvePageData{
				Title:   "Missing Emergency ID",
				Message: "The link you followed does not identify an emergency.",
			})
		}
		h.logger.Error("resolve emergency failed", zap.String("emergency_id", id), zap.Error(err))
		return h.render(c, http.StatusInternalServerError, resolvePageData{
			Title:   "Error Resolving Emergency",
			Message: "The emergency could not be marked as resolved. Please try again or resolve it from the dashboard.",
			ID:      id,
			Detail:  err.Error(),
		})
	}

	h.logger.Info("emergency resolved from link", zap.String("emergency_id", outcome.ID), zap.Bool("found", outcome.Found))
	return h.render(c, http.StatusOK, resolvePageData{
		Title:   "Emergency Resolved",
		Message: "The emergency has been marked as resolved. You can close this window.",
		ID:      outcome.ID,
		OK:      true,
	})
}

func (h *ResolveHandler) render(c *fiber.Ctx, status int, data resolvePageData) error {
	var buf bytes.Buffer
	if err := resolvePage.Execute(&buf, data); err != nil {
		h.logger.Error("render resolve page", zap.Error(err))
		return c.Status(status).SendString(data.Title)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
