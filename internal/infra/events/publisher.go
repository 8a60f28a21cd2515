package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	TypeHarvestReady = "harvest.ready"
	source           = "counter-harvester"
)

// HarvestReady announces a validated raw report waiting for content processing.
type HarvestReady struct {
	HarvestID    int64  `json:"harvest_id"`
	ConsortiumID int64  `json:"consortium_id"`
	InstID       int64  `json:"inst_id"`
	ProvID       int64  `json:"prov_id"`
	Report       string `json:"report"`
	Release      string `json:"release"`
	YearMon      string `json:"yearmon"`
	RawFile      string `json:"rawfile"`
	ReplaceData  bool   `json:"replace_data"`
}

// Event is the envelope every message carries.
type Event struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Source    string       `json:"source"`
	Data      HarvestReady `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

func newEvent(ready HarvestReady, now time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeHarvestReady,
		Source:    source,
		Data:      ready,
		Timestamp: now,
	}
}

func encode(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "failed to marshal event")
	}
	return kafka.Message{
		// Keyed by harvest so re-harvests of one record stay ordered.
		Key:   []byte(strconv.FormatInt(e.Data.HarvestID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID)},
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "source", Value: []byte(e.Source)},
		},
	}, nil
}

// KafkaPublisher writes harvest events to one topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *logrus.Entry
}

func NewKafkaPublisher(brokers []string, topic string, log *logrus.Entry) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

func (p *KafkaPublisher) PublishReady(ctx context.Context, ready HarvestReady) error {
	event := newEvent(ready, time.Now())
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to publish %s for harvest %d", event.Type, ready.HarvestID)
	}
	p.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"harvest_id": ready.HarvestID,
		"topic":      p.writer.Topic,
	}).Debug("Event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Discard is used when no brokers are configured.
type Discard struct{}

func (Discard) PublishReady(context.Context, HarvestReady) error { return nil }
