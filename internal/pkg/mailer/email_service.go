package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"bank-support-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp is not configured")

type EscalationAlert struct {
	SessionID       string
	LastUserMessage string
	At              time.Time
}

type HandoverAlert struct {
	TicketID  string
	SessionID string
	Name      string
	Phone     string
	Message   string
	At        time.Time
}

type IEmailService interface {
	SendEscalationAlert(toEmail string, alert EscalationAlert) error
	SendHandoverRequest(toEmail string, alert HandoverAlert) error
}

// sender is the part of *gomail.Dialer the service uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
	log         logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string, log logger.ILogger) IEmailService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	var d sender
	if host != "" {
		d = gomail.NewDialer(host, port, username, password)
	}
	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		log:         log,
	}
}

var escalationTmpl = template.Must(template.New("escalation").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
	<h2>Escalation suggested</h2>
	<ul>
		<li><b>Session:</b> {{.SessionID}}</li>
		<li><b>Last user message:</b> {{if .LastUserMessage}}{{.LastUserMessage}}{{else}}(n/a){{end}}</li>
		<li><b>At:</b> {{.At.Format "2006-01-02 15:04:05 MST"}}</li>
	</ul>
</div>`))

var handoverTmpl = template.Must(template.New("handover").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
	<h2>New human handover request</h2>
	<ul>
		<li><b>Ticket:</b> {{.TicketID}}</li>
		<li><b>Session:</b> {{.SessionID}}</li>
		<li><b>Name:</b> {{if .Name}}{{.Name}}{{else}}(n/a){{end}}</li>
		<li><b>Phone:</b> {{if .Phone}}{{.Phone}}{{else}}(n/a){{end}}</li>
		<li><b>Message:</b> {{if .Message}}{{.Message}}{{else}}(n/a){{end}}</li>
	</ul>
</div>`))

func (s *emailService) SendEscalationAlert(toEmail string, alert EscalationAlert) error {
	subject := fmt.Sprintf("[Chatbot] Escalation suggested for session %s", alert.SessionID)
	return s.send(toEmail, subject, escalationTmpl, alert)
}

func (s *emailService) SendHandoverRequest(toEmail string, alert HandoverAlert) error {
	subject := fmt.Sprintf("[Chatbot] Handover request %s", alert.TicketID)
	return s.send(toEmail, subject, handoverTmpl, alert)
}

func (s *emailService) send(toEmail, subject string, tmpl *template.Template, data interface{}) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		s.log.Error("MAILER", "Failed to send email", map[string]interface{}{
			"to": toEmail, "subject": subject, "error": err.Error(),
		})
		return err
	}

	s.log.Info("MAILER", "Email sent", map[string]interface{}{"to": toEmail, "subject": subject})
	return nil
}
