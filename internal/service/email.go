package service

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// LogEmailSender writes outgoing mail to the log instead of delivering it.
// Used in development and tests.
type LogEmailSender struct {
	Log *zap.Logger
}

func (s *LogEmailSender) SendConfirmationEmail(_ context.Context, to, firstName, code string) error {
	s.Log.Info("confirmation email",
		zap.String("to", to), zap.String("first_name", firstName), zap.String("code", code))
	return nil
}

func (s *LogEmailSender) SendPasswordResetEmail(_ context.Context, to, firstName, code string) error {
	s.Log.Info("password reset email",
		zap.String("to", to), zap.String("first_name", firstName), zap.String("code", code))
	return nil
}

func (s *LogEmailSender) SendEmailChangeEmail(_ context.Context, to, firstName, code string) error {
	s.Log.Info("email change email",
		zap.String("to", to), zap.String("first_name", firstName), zap.String("code", code))
	return nil
}

// SMTPEmailSender delivers mail through a plain SMTP relay.
type SMTPEmailSender struct {
	// Addr is the relay host:port.
	Addr string
	// From is the sender address.
	From string
}

func (s *SMTPEmailSender) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body)
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *SMTPEmailSender) SendConfirmationEmail(_ context.Context, to, firstName, code string) error {
	return s.send(to, "Confirm your email",
		fmt.Sprintf("Hi %s,\r\n\r\nYour confirmation code is %s. It expires shortly.", firstName, code))
}

func (s *SMTPEmailSender) SendPasswordResetEmail(_ context.Context, to, firstName, code string) error {
	return s.send(to, "Reset your password",
		fmt.Sprintf("Hi %s,\r\n\r\nYour password reset code is %s. If you did not request this, ignore this email.", firstName, code))
}

func (s *SMTPEmailSender) SendEmailChangeEmail(_ context.Context, to, firstName, code string) error {
	return s.send(to, "Confirm your new email",
		fmt.Sprintf("Hi %s,\r\n\r\nYour email change code is %s.", firstName, code))
}
