package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to, invoiceNumber string, total float64, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmation %s", invoiceNumber)
	body := BuildOrderConfirmationBody(invoiceNumber, total, items)
	return s.send(to, subject, body)
}

// SendConsultationResponded tells the requester an advisor has answered
func (s *Service) SendConsultationResponded(to, username, subject string) error {
	body := BuildConsultationRespondedBody(username, subject)
	return s.send(to, "Your consultation has been answered", body)
}

// SendVerificationCode sends the email-verification code for a new account
func (s *Service) SendVerificationCode(to, username, code string) error {
	body := BuildCodeBody(username, code,
		"Verify your email address",
		"Use the code below to verify your email address. It expires in 30 minutes.")
	return s.send(to, "Verify your email address", body)
}

// SendPasswordReset sends a password-reset code
func (s *Service) SendPasswordReset(to, username, code string) error {
	body := BuildCodeBody(username, code,
		"Reset your password",
		"Use the code below to reset your password. It expires in 30 minutes. If you did not request a reset, you can ignore this email.")
	return s.send(to, "Reset your password", body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
