package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"counter_harvester/internal/app"
	idb "counter_harvester/internal/infra/database"
	"counter_harvester/internal/infra/logger"
	"counter_harvester/internal/infra/scheduler"
	"counter_harvester/internal/infra/telegram"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run loader and worker on cron schedules with the operator bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()
		if len(e.cfg.Consortia) == 0 {
			return errors.New("CONSORTIA is not set")
		}
		ctx := cmd.Context()
		mainLogger := logger.Component("main")

		var alerts app.Alerter
		var bot *telebot.Bot
		if e.cfg.TelegramToken != "" {
			bot, err = newBot(e.cfg.TelegramToken)
			if err != nil {
				return errors.Wrap(err, "could not create Telegram bot")
			}
			alerts = telegram.NewAlerter(telegram.NewTelebotAdapter(bot), e.cfg.AdminTelegramID, logger.Component("alerts"))

			operator := app.NewOperatorService(idb.NewPostgresHarvestRepository(e.db), idb.NewPostgresQueueRepository(e.db), e.cfg.AdminTelegramID, e.cfg.HTTPTimeout)
			telegram.RegisterBotCommands(bot, e.cfg.AdminTelegramID, logger.Component("telegram"))
			telegram.RegisterAdminHandlers(ctx, bot, operator, e.cfg.AdminTelegramID, e.cfg.Consortia[0], logger.Component("telegram"))
			mainLogger.Info("Operator bot handlers registered")
		} else {
			mainLogger.Info("TELEGRAM_TOKEN not set, operator bot disabled")
		}

		worker, err := e.newWorker(ctx, alerts)
		if err != nil {
			return err
		}
		sched := scheduler.NewHarvestScheduler(e.newLoader(), worker, e.cfg.Consortia,
			logger.Component("scheduler"), e.cfg.CronSpecLoader, e.cfg.CronSpecWorker)
		if err := sched.Start(); err != nil {
			return err
		}

		if bot != nil {
			go bot.Start()
		}
		mainLogger.Info("Harvester running")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
		}

		mainLogger.Info("Shutting down harvester...")
		if bot != nil {
			bot.Stop()
		}
		sched.Stop()
		mainLogger.Info("Harvester shut down gracefully")
		return nil
	},
}

func newBot(token string) (*telebot.Bot, error) {
	log := logger.Component("telebot")
	return telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	})
}
