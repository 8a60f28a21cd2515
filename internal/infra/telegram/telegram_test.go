package telegram

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"counter_harvester/internal/app"
	"counter_harvester/internal/domain/harvest"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func TestAlerterSendsToAdmin(t *testing.T) {
	sender := &fakeSender{}
	log, _ := test.NewNullLogger()
	a := NewAlerter(sender, 42, logrus.NewEntry(log))

	require.NoError(t, a.Alert(context.Background(), "Harvest 7 is NoRetries"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].chatID)
	assert.Equal(t, "Harvest 7 is NoRetries", sender.sent[0].text)
}

func TestAlerterWithoutAdminOnlyLogs(t *testing.T) {
	sender := &fakeSender{}
	log, hook := test.NewNullLogger()
	a := NewAlerter(sender, 0, logrus.NewEntry(log))

	require.NoError(t, a.Alert(context.Background(), "text"))
	assert.Empty(t, sender.sent)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestAlerterWrapsSendError(t *testing.T) {
	sendErr := errors.New("telegram down")
	log, _ := test.NewNullLogger()
	a := NewAlerter(&fakeSender{err: sendErr}, 42, logrus.NewEntry(log))

	err := a.Alert(context.Background(), "text")
	assert.ErrorIs(t, err, sendErr)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))

	long := strings.Repeat("é", maxMessageLen)
	clipped := clip(long)
	assert.LessOrEqual(t, len(clipped), maxMessageLen)
	assert.True(t, strings.HasSuffix(clipped, "..."))
	assert.True(t, strings.HasPrefix(clipped, "éé"))
}

func TestParseHarvestArgs(t *testing.T) {
	id, cons, err := parseHarvestArgs([]string{"15"}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)
	assert.Equal(t, int64(3), cons)

	id, cons, err = parseHarvestArgs([]string{"15", "8"}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)
	assert.Equal(t, int64(8), cons)

	for _, args := range [][]string{nil, {"x"}, {"-1"}, {"1", "y"}, {"1", "2", "3"}} {
		_, _, err := parseHarvestArgs(args, 3)
		assert.Error(t, err, "args %v", args)
	}
}

func TestFormatReport(t *testing.T) {
	report := &app.HarvestReport{
		Record: &harvest.Record{
			ID: 9, CredentialID: 30, ReportID: 1, Release: "5", YearMon: "2024-02",
			Status: harvest.StatusReQueued, Attempts: 2, ErrorID: 1010,
			RawFile: sql.NullString{String: "9_TR_2024-02-01_2024-02-29.json.zst.enc", Valid: true},
		},
		Failures: []*harvest.FailedHarvest{{
			ProcessStep: harvest.StepAPI, ErrorID: 1010, Detail: "Service Busy",
			CreatedAt: time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC),
		}},
	}

	out := formatReport(report)
	assert.Contains(t, out, "Harvest 9: ReQueued")
	assert.Contains(t, out, "Attempts: 2, last error: 1010")
	assert.Contains(t, out, "Raw file: 9_TR_2024-02-01_2024-02-29.json.zst.enc")
	assert.Contains(t, out, "- 2024-03-02 10:30 [API] 1010 Service Busy")

	report.Failures = nil
	assert.True(t, strings.HasSuffix(formatReport(report), "No failures recorded."))
}

func TestServiceErrorText(t *testing.T) {
	log, _ := test.NewNullLogger()
	l := logrus.NewEntry(log)

	assert.Equal(t, msgUnauthorized, serviceErrorText(l, 1, app.ErrAdminNotAuthorized))
	assert.Equal(t, "Harvest 5 not found.", serviceErrorText(l, 5, errors.Wrap(harvest.ErrHarvestNotFound, "lookup")))
	assert.Contains(t, serviceErrorText(l, 5, app.ErrHarvestRunning), "running")
	assert.Contains(t, serviceErrorText(l, 5, errors.New("db gone")), "db gone")
}
