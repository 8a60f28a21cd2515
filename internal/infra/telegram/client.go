// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

// TelebotAdapter implements Sender using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}

// Alerter sends operator alerts to the admin chat. With no admin
// configured alerts are only logged.
type Alerter struct {
	sender  Sender
	adminID int64
	log     *logrus.Entry
}

func NewAlerter(sender Sender, adminID int64, log *logrus.Entry) *Alerter {
	return &Alerter{sender: sender, adminID: adminID, log: log}
}

func (a *Alerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.adminID == 0 {
		a.log.WithField("alert", text).Warn("No admin chat configured, alert not sent")
		return nil
	}
	if err := a.sender.SendMessage(a.adminID, clip(text), nil); err != nil {
		return errors.Wrapf(err, "failed to send alert to chat %d", a.adminID)
	}
	return nil
}

// clip shortens text to the message limit without splitting a rune.
func clip(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	cut := maxMessageLen - len("...")
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
