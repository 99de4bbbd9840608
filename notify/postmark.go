package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mrz1836/postmark"
)

var (
	// ErrInvalidConfig is an exported constant or variable used by the authentication engine.
	ErrInvalidConfig = errors.New("invalid sender config")
	// ErrSendFailed is an exported constant or variable used by the authentication engine.
	ErrSendFailed = errors.New("send failed")
)

// PostmarkConfig defines a public type used by triauth APIs.
//
// PostmarkConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string

	// Tag labels outbound messages in Postmark analytics. Optional.
	Tag string
}

// PostmarkSender delivers mail through Postmark's transactional API.
//
// PostmarkSender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PostmarkSender struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkSender describes the newpostmarksender operation and its observable behavior.
//
// NewPostmarkSender may return an error when input validation, dependency calls, or security checks fail.
// NewPostmarkSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: From is required", ErrInvalidConfig)
	}
	if cfg.ReplyTo == "" {
		cfg.ReplyTo = cfg.From
	}

	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// SendMail describes the sendmail operation and its observable behavior.
//
// Tracking is limited to opens and HTML link clicks; plain-text links are
// left untouched.
//
// SendMail may return an error when input validation, dependency calls, or security checks fail.
// SendMail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *PostmarkSender) SendMail(ctx context.Context, to, subject, body string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.config.From,
		ReplyTo:    s.config.ReplyTo,
		To:         to,
		Subject:    subject,
		Tag:        s.config.Tag,
		TextBody:   body,
		HTMLBody:   textToHTML(body),
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

func textToHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n\n", "</p><p>") + "</p>"
}
