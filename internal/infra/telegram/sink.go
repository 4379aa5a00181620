// Package telegram delivers match notifications over the Telegram bot API to
// users who registered a chat id on their profile.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/store"
)

type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Sink struct {
	api      sender
	profiles ProfileReader
	logger   *zap.Logger
}

func NewSink(token string, profiles ProfileReader, logger *zap.Logger) (*Sink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sink{api: api, profiles: profiles, logger: logger}, nil
}

// Notify sends one message to each side of the match. A party without a chat
// id, or one deleted since the match, is skipped.
func (s *Sink) Notify(ctx context.Context, event model.MatchEvent) error {
	var failed []string
	for _, pair := range [][2]string{{event.UserA, event.UserB}, {event.UserB, event.UserA}} {
		recipientID, otherID := pair[0], pair[1]

		recipient, err := s.profiles.GetProfile(ctx, recipientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load notification recipient %s: %w", recipientID, err)
		}
		if recipient.ChatID == 0 {
			continue
		}

		other, err := s.profiles.GetProfile(ctx, otherID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load matched profile %s: %w", otherID, err)
		}

		msg := tgbotapi.NewMessage(recipient.ChatID, matchText(event.Kind, other))
		if _, err := s.api.Send(msg); err != nil {
			s.logger.Warn("send match notification failed",
				zap.String("user_id", recipientID),
				zap.Int64("chat_id", recipient.ChatID),
				zap.Error(err),
			)
			failed = append(failed, recipientID)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("deliver match notification to %s", strings.Join(failed, ", "))
	}
	return nil
}

func matchText(kind enums.MatchKind, other model.UserProfile) string {
	name := strings.TrimSpace(other.DisplayName)
	if name == "" {
		name = "someone"
	}
	if kind == enums.MatchKindSuperLike {
		return fmt.Sprintf("It's a super match! You and %s super-liked each other.", name)
	}
	return fmt.Sprintf("It's a match! You and %s liked each other.", name)
}
