// Package notification delivers messages over Slack, Microsoft Teams, SMS
// (Twilio) and email.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ChannelSender delivers a message on one channel.
type ChannelSender interface {
	Send(ctx context.Context, recipient, message string) error
}

// Service implements protocol.Notifier by routing to the configured senders.
type Service struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	senders map[string]ChannelSender
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger:  logger.With("module", "notifier"),
		senders: make(map[string]ChannelSender),
	}
}

// Register installs sender for channel, replacing any previous one.
func (s *Service) Register(channel string, sender ChannelSender) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.senders[strings.ToLower(channel)] = sender
}

func (s *Service) Send(ctx context.Context, channel, recipient, message string) error {
	channel = strings.ToLower(strings.TrimSpace(channel))

	switch channel {
	case protocol.ChannelSlack, protocol.ChannelTeams, protocol.ChannelEmail, protocol.ChannelSMS:
	default:
		return protocol.UnsupportedChannelError(channel)
	}

	s.mu.RLock()
	sender, ok := s.senders[channel]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s sender not configured", protocol.ErrMissingConfig, channel)
	}

	if err := sender.Send(ctx, recipient, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "channel", channel, "error", err)

		return err
	}

	s.logger.DebugContext(ctx, "notification sent", "channel", channel)

	return nil
}
