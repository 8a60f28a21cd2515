// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			return c.Send(fmt.Sprintf("Hello %s. Harvest alerts will be sent to this chat. Use /help for the command list.", c.Sender().FirstName))
		}
		return c.Send("This bot reports usage-harvest problems to its operator.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			return c.Send("No commands are available to you.")
		}
		return c.Send(adminHelp(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelp() string {
	var helpText strings.Builder
	helpText.WriteString("Operator commands:\n\n")
	helpText.WriteString("`/harvest_status <harvest_id>`\n - Show a harvest and its failure history.\n\n")
	helpText.WriteString("`/harvest_reset <harvest_id> [consortium_id]`\n - Clear attempts and failures and queue the harvest again.\n\n")
	helpText.WriteString("`/harvest_pause <harvest_id>`\n - Hold a harvest; the worker skips it.\n\n")
	helpText.WriteString("`/harvest_resume <harvest_id> [consortium_id]`\n - Release a paused harvest and queue it.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
