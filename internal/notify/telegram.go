// Package notify delivers operational alerts to a Telegram chat.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/logging"
)

// Telegram sends fire-and-forget messages to the configured ops chat.
// Delivery failures are logged and never propagated to callers.
type Telegram struct {
	cfg    config.TelegramConfig
	logger *logging.Logger

	// send is swappable in tests.
	send func(token string, chatID int64, text string) error
}

// NewTelegram creates a notifier. A disabled or incomplete configuration
// yields a notifier whose Send is a no-op.
func NewTelegram(cfg config.TelegramConfig, logger *logging.Logger) *Telegram {
	return &Telegram{
		cfg:    cfg,
		logger: logger,
		send:   sendMessage,
	}
}

// Enabled reports whether alerts will actually be delivered.
func (t *Telegram) Enabled() bool {
	return t.cfg.Enabled && strings.TrimSpace(t.cfg.BotToken) != "" && t.cfg.ChatID != 0
}

// Send delivers a Markdown message to the ops chat. It blocks for the
// duration of the API call; callers on a request path should invoke it
// from a goroutine.
func (t *Telegram) Send(text string) {
	if !t.Enabled() || strings.TrimSpace(text) == "" {
		return
	}
	if err := t.send(t.cfg.BotToken, t.cfg.ChatID, text); err != nil {
		if t.logger != nil {
			t.logger.Warn("Failed to deliver Telegram alert", "error", err.Error())
		}
	}
}

// LeadCreated announces a new verified enquiry to the ops chat.
func (t *Telegram) LeadCreated(leadID, parentName, phone, class string) {
	t.Send(fmt.Sprintf("*New admission enquiry*\nParent: %s\nPhone: `%s`\nClass: %s\nLead ID: `%s`", parentName, phone, class, leadID))
}

// LeadVerificationFailed alerts operators that a lead was created in the
// CRM but could not be read back.
func (t *Telegram) LeadVerificationFailed(leadID, phone string) {
	t.Send(fmt.Sprintf("*Lead verification failed*\nLead ID: `%s`\nPhone: `%s`\nThe record was created but could not be read back from Zoho CRM.", leadID, phone))
}

// AuthenticationLost alerts operators that CRM calls are failing for
// want of a usable token.
func (t *Telegram) AuthenticationLost(detail string) {
	t.Send(fmt.Sprintf("*Zoho authentication lost*\n%s\nVisit /oauth/start to re-authenticate.", detail))
}

func sendMessage(token string, chatID int64, text string) error {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, err = bot.Send(msg)
	return err
}
