package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"counter_harvester/internal/app"
	"counter_harvester/internal/domain/harvest"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers the harvest operator commands. Commands
// that queue a record use defaultConsortium unless a consortium ID is
// given as the second argument.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, svc *app.OperatorService, adminTelegramID, defaultConsortium int64, baseLogger *logrus.Entry) {
	b.Handle("/harvest_status", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/harvest_status", c)
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		id, _, err := parseHarvestArgs(c.Args(), defaultConsortium)
		if err != nil {
			return c.Send(err.Error() + "\nUsage: /harvest_status <harvest_id>")
		}

		report, err := svc.HarvestStatus(ctx, c.Sender().ID, id)
		if err != nil {
			return c.Send(serviceErrorText(handlerLogger, id, err))
		}
		return c.Send(formatReport(report))
	})

	b.Handle("/harvest_reset", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/harvest_reset", c)
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		id, consortiumID, err := parseHarvestArgs(c.Args(), defaultConsortium)
		if err != nil {
			return c.Send(err.Error() + "\nUsage: /harvest_reset <harvest_id> [consortium_id]")
		}

		rec, err := svc.ResetHarvest(ctx, c.Sender().ID, id, consortiumID)
		if err != nil {
			return c.Send(serviceErrorText(handlerLogger, id, err))
		}
		handlerLogger.WithField("harvest_id", rec.ID).Info("Harvest reset")
		return c.Send(fmt.Sprintf("Harvest %d reset and queued.", rec.ID))
	})

	b.Handle("/harvest_pause", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/harvest_pause", c)
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		id, _, err := parseHarvestArgs(c.Args(), defaultConsortium)
		if err != nil {
			return c.Send(err.Error() + "\nUsage: /harvest_pause <harvest_id>")
		}

		rec, err := svc.PauseHarvest(ctx, c.Sender().ID, id)
		if err != nil {
			return c.Send(serviceErrorText(handlerLogger, id, err))
		}
		handlerLogger.WithField("harvest_id", rec.ID).Info("Harvest paused")
		return c.Send(fmt.Sprintf("Harvest %d paused.", rec.ID))
	})

	b.Handle("/harvest_resume", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/harvest_resume", c)
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		id, consortiumID, err := parseHarvestArgs(c.Args(), defaultConsortium)
		if err != nil {
			return c.Send(err.Error() + "\nUsage: /harvest_resume <harvest_id> [consortium_id]")
		}

		rec, err := svc.ResumeHarvest(ctx, c.Sender().ID, id, consortiumID)
		if err != nil {
			return c.Send(serviceErrorText(handlerLogger, id, err))
		}
		handlerLogger.WithField("harvest_id", rec.ID).Info("Harvest resumed")
		return c.Send(fmt.Sprintf("Harvest %d resumed and queued.", rec.ID))
	})
}

func commandLogger(base *logrus.Entry, command string, c telebot.Context) *logrus.Entry {
	l := base.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
	l.Info("Command received")
	return l
}

// parseHarvestArgs reads "<harvest_id> [consortium_id]".
func parseHarvestArgs(args []string, defaultConsortium int64) (harvestID, consortiumID int64, err error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, 0, errors.New("Invalid command format.")
	}
	harvestID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil || harvestID <= 0 {
		return 0, 0, errors.New("Error: harvest ID must be a positive number.")
	}
	consortiumID = defaultConsortium
	if len(args) == 2 {
		consortiumID, err = strconv.ParseInt(args[1], 10, 64)
		if err != nil || consortiumID <= 0 {
			return 0, 0, errors.New("Error: consortium ID must be a positive number.")
		}
	}
	return harvestID, consortiumID, nil
}

func serviceErrorText(l *logrus.Entry, harvestID int64, err error) string {
	logWithError := l.WithError(err).WithField("harvest_id", harvestID)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logWithError.Warn("Admin not authorized (service level)")
		return msgUnauthorized
	case errors.Is(err, harvest.ErrHarvestNotFound):
		logWithError.Warn("Harvest not found")
		return fmt.Sprintf("Harvest %d not found.", harvestID)
	case errors.Is(err, app.ErrHarvestRunning):
		return fmt.Sprintf("Harvest %d is running right now, try again later.", harvestID)
	case errors.Is(err, app.ErrHarvestNotPaused):
		return fmt.Sprintf("Harvest %d is not paused.", harvestID)
	}
	logWithError.Error("Operator command failed")
	return fmt.Sprintf("Command failed: %s", err.Error())
}

func formatReport(r *app.HarvestReport) string {
	rec := r.Record
	var b strings.Builder
	fmt.Fprintf(&b, "Harvest %d: %s\n", rec.ID, rec.Status)
	fmt.Fprintf(&b, "Credential %d, report %d, release %s, month %s\n", rec.CredentialID, rec.ReportID, rec.Release, rec.YearMon)
	fmt.Fprintf(&b, "Attempts: %d, last error: %d\n", rec.Attempts, rec.ErrorID)
	if rec.RawFile.Valid {
		fmt.Fprintf(&b, "Raw file: %s\n", rec.RawFile.String)
	}
	if len(r.Failures) == 0 {
		b.WriteString("No failures recorded.")
		return b.String()
	}
	b.WriteString("Failures:\n")
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "- %s [%s] %d %s\n", f.CreatedAt.Format("2006-01-02 15:04"), f.ProcessStep, f.ErrorID, f.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}
