// File: internal/infra/adapters/telegram/notifier.go
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*BotNotifier)(nil)

// BotNotifier delivers queued notifications through the bot API.
type BotNotifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewBotNotifier(token string, logger *zerolog.Logger) (*BotNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "BotNotifier").Logger()
	return &BotNotifier{bot: bot, log: &l}, nil
}

// NewBotNotifierWith wraps an already authorized bot, for sharing one API
// client between the notifier and the command front end.
func NewBotNotifierWith(bot *tgbotapi.BotAPI, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "BotNotifier").Logger()
	return &BotNotifier{bot: bot, log: &l}
}

func (n *BotNotifier) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn().Int64("user_id", userID).Err(err).Msg("send failed")
		return domain.ErrOperationFailed
	}
	return nil
}
