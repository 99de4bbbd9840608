package notify

import (
	"context"
	"log"
)

// LogSender writes outbound messages to a [log.Logger] instead of delivering
// them. It implements both sender contracts and is meant for development and
// tests; codes end up in plain text in the log output.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender describes the newlogsender operation and its observable behavior.
//
// NewLogSender may return an error when input validation, dependency calls, or security checks fail.
// NewLogSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// SendMail describes the sendmail operation and its observable behavior.
//
// SendMail may return an error when input validation, dependency calls, or security checks fail.
// SendMail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *LogSender) SendMail(_ context.Context, to, subject, body string) error {
	s.logger.Printf("mail to=%s subject=%q\n%s", to, subject, body)
	return nil
}

// SendSMS describes the sendsms operation and its observable behavior.
//
// SendSMS may return an error when input validation, dependency calls, or security checks fail.
// SendSMS does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *LogSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Printf("sms to=%s body=%q", to, body)
	return nil
}
