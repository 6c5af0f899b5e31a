package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
)

// Sender delivers one notification to a set of device tokens. Delivery is
// best effort: an error describes the attempt, it is never retried.
type Sender interface {
	SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// multicastClient is the slice of *messaging.Client that FCMSender needs.
type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMSender sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, all methods are no-ops.
type FCMSender struct {
	client multicastClient
	logger *slog.Logger
}

// NewFCMSender wraps an FCM client. Returns nil if client is nil
// (notifications disabled).
func NewFCMSender(client *messaging.Client, logger *slog.Logger) *FCMSender {
	if client == nil {
		return nil
	}
	return newFCMSender(client, logger)
}

func newFCMSender(client multicastClient, logger *slog.Logger) *FCMSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMSender{client: client, logger: logger}
}

// SendMulti sends a notification to multiple device tokens, splitting the
// token list into multicast-sized chunks. It fails only when no token
// accepted the message.
func (s *FCMSender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if s == nil {
		return nil // no-op when not configured
	}
	if len(tokens) == 0 {
		return ErrNoTokens
	}

	success, failure := 0, 0
	var lastErr error
	for start := 0; start < len(tokens); start += fcmMulticastLimit {
		end := min(start+fcmMulticastLimit, len(tokens))
		msg := &messaging.MulticastMessage{
			Tokens:       tokens[start:end],
			Notification: &messaging.Notification{Title: title, Body: body},
			Data:         data,
		}

		resp, err := s.client.SendEachForMulticast(ctx, msg)
		if err != nil {
			failure += end - start
			lastErr = err
			continue
		}
		success += resp.SuccessCount
		failure += resp.FailureCount

		for i, r := range resp.Responses {
			if r == nil || r.Success {
				continue
			}
			lastErr = r.Error
			s.logger.Debug("FCM token rejected",
				"token_index", start+i,
				"unregistered", messaging.IsUnregistered(r.Error),
				"error", r.Error)
		}
	}

	s.logger.Debug("FCM multicast", "tokens", len(tokens), "success", success, "failure", failure)
	if success == 0 {
		if lastErr == nil {
			return fmt.Errorf("fcm: all %d tokens failed", failure)
		}
		return fmt.Errorf("fcm: all %d tokens failed: %w", failure, lastErr)
	}
	return nil
}

// LogSender writes notifications to the log instead of delivering them.
// Used for dry runs and local development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendMulti logs the notification.
func (s *LogSender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return ErrNoTokens
	}
	s.logger.InfoContext(ctx, "Notification (dry run)",
		"tokens", len(tokens), "title", title, "body", body, "data", data)
	return nil
}
