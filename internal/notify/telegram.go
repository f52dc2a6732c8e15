// Package notify pushes advisory planning events (preference conflicts,
// degraded calendar sync) to the family's Telegram chat.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Telegram sends planning notifications to a single chat. A nil receiver
// or unconfigured bot silently drops messages, so wiring it is optional.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// NewTelegram creates the notifier. An empty token yields a disabled
// notifier rather than an error; notifications are best-effort.
func NewTelegram(token string, chatID int64, logger *logrus.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return &Telegram{logger: logger}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// ConflictsDetected reports preference-order conflicts for a kid's week.
func (t *Telegram) ConflictsDetected(kidID, weekID int64, count int) {
	t.send(fmt.Sprintf("⚠️ %d preference conflict(s) for kid %d, week %d: a favorite's registration opens after a fallback's.", count, kidID, weekID))
}

// SyncDegraded reports a candidacy whose calendar sync gave up.
func (t *Telegram) SyncDegraded(candidacyID int64, reason string) {
	t.send(fmt.Sprintf("🔁 Calendar sync degraded for candidacy %d: %s", candidacyID, reason))
}

func (t *Telegram) send(text string) {
	if t.bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil && t.logger != nil {
		t.logger.Errorf("Failed to send telegram notification: %v", err)
	}
}
