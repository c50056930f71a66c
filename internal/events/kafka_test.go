package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

var published = time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC)

func reading() *airquality.Reading {
	return &airquality.Reading{
		Coordinates: airquality.Coordinate{Latitude: 40.7128, Longitude: -74.006},
		Location:    "New York City, NY",
		AQI:         72,
		Pollutants:  airquality.Pollutants{airquality.PollutantPM25: 22.1},
		Source:      airquality.SourceAirNow,
		Timestamp:   published.Add(-time.Minute),
	}
}

func TestSerializeReading(t *testing.T) {
	msg, err := serializeReading(reading(), published)
	require.NoError(t, err)

	assert.Equal(t, []byte("aq:40.71:-74.01"), msg.Key)

	var event ReadingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, 72, event.AQI)
	assert.Equal(t, airquality.LevelModerate, event.Level)
	assert.Equal(t, airquality.SourceAirNow, event.Source)
	assert.Equal(t, 22.1, event.Pollutants[airquality.PollutantPM25])

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("epa_airnow"), msg.Headers[0].Value)
	assert.Equal(t, []byte(published.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestKafkaPublisher_PublishReadings(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "readings", logger: zerolog.Nop(), now: func() time.Time { return published }}

	require.NoError(t, p.PublishReadings(context.Background(), nil))
	assert.Empty(t, w.msgs)

	require.NoError(t, p.PublishReadings(context.Background(), []*airquality.Reading{reading(), reading()}))
	assert.Len(t, w.msgs, 2)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topic: "readings", logger: zerolog.Nop(), now: time.Now}

	err := p.PublishReadings(context.Background(), []*airquality.Reading{reading()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readings")
	assert.Contains(t, err.Error(), "broker down")
}
