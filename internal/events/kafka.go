// Package events publishes refreshed readings to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// ReadingEvent is the message value for a refreshed reading.
type ReadingEvent struct {
	GridKey     string                `json:"gridKey"`
	Location    string                `json:"location"`
	Latitude    float64               `json:"lat"`
	Longitude   float64               `json:"lon"`
	AQI         int                   `json:"aqi"`
	Level       airquality.Level      `json:"level"`
	Pollutants  airquality.Pollutants `json:"pollutants"`
	Source      airquality.Source     `json:"source"`
	ObservedAt  time.Time             `json:"observedAt"`
	PublishedAt time.Time             `json:"publishedAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger
}

// KafkaPublisher writes readings to a Kafka topic keyed by grid cell, so
// every update for one location lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a producer for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, topic: cfg.Topic, logger: cfg.Logger, now: time.Now}
}

// PublishReadings writes all readings in one batch.
func (p *KafkaPublisher) PublishReadings(ctx context.Context, readings []*airquality.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	publishedAt := p.now().UTC()
	msgs := make([]kafkago.Message, 0, len(readings))
	for _, r := range readings {
		msg, err := serializeReading(r, publishedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d readings to %s: %w", len(msgs), p.topic, err)
	}

	p.logger.Debug().Int("count", len(msgs)).Str("topic", p.topic).Msg("published readings")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeReading(r *airquality.Reading, publishedAt time.Time) (kafkago.Message, error) {
	key := airquality.GridKey(r.Coordinates)
	event := ReadingEvent{
		GridKey:     key,
		Location:    r.Location,
		Latitude:    r.Coordinates.Latitude,
		Longitude:   r.Coordinates.Longitude,
		AQI:         r.AQI,
		Level:       r.Level(),
		Pollutants:  r.Pollutants,
		Source:      r.Source,
		ObservedAt:  r.Timestamp,
		PublishedAt: publishedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading %s: %w", key, err)
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(r.Source)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
