package notification

import (
	"bytes"
	"html/template"
	"net/url"
	"time"
)

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f9fafb; padding: 24px;">
  <div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; border-top: 6px solid #dc2626; padding: 24px;">
    <h1 style="color: #dc2626; margin-top: 0;">🚨 Emergency Alert</h1>
    <p>A new emergency requires immediate attention.</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td style="padding: 6px 0; font-weight: bold;">Emergency ID</td><td>{{.ID}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">Patient</td><td>{{.PatientName}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">Location</td><td>{{.Location}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">Condition</td><td>{{.Condition}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">Priority</td><td style="text-transform: uppercase;">{{.Priority}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">Time</td><td>{{.Timestamp}}</td></tr>
    </table>
    <p style="margin-top: 24px;">
      <a href="{{.ResolveURL}}" style="background: #16a34a; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">Mark as resolved</a>
    </p>
  </div>
</body>
</html>`))

type alertView struct {
	ID          string
	PatientName string
	Location    string
	Condition   string
	Priority    string
	Timestamp   string
	ResolveURL  string
}

// Subject returns the email subject for an alert.
func Subject(a Alert) string {
	return "🚨 EMERGENCY ALERT - " + a.Condition
}

// ResolveURL is the one-click resolution link embedded in alerts.
func ResolveURL(baseURL, emergencyID string) string {
	return baseURL + "/resolve-emergency?id=" + url.QueryEscape(emergencyID)
}

// RenderAlert renders the HTML body for a.
func RenderAlert(a Alert, baseURL string) (string, error) {
	at := a.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, alertView{
		ID:          a.EmergencyID,
		PatientName: a.displayPatientName(),
		Location:    a.Location,
		Condition:   a.Condition,
		Priority:    a.priority(),
		Timestamp:   at.UTC().Format(time.RFC1123),
		ResolveURL:  ResolveURL(baseURL, a.EmergencyID),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
