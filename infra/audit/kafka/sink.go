// Package kafka publishes audit facts to a Kafka topic. Messages are keyed by
// vehicle so the facts of one vehicle stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/worklog/core/audit"
)

// Config defines the producer settings.
type Config struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	// RequiredAcks is 1 (leader) or -1 (all replicas, the default).
	RequiredAcks int `json:"required_acks"`
}

func (c *Config) setDefaults() {
	if c.Topic == "" {
		c.Topic = "worklog.audit"
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = int(kafka.RequireAll)
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes facts with a synchronous kafka.Writer.
type Sink struct {
	w     messageWriter
	topic string
}

// NewSink creates the producer. No connection is made until the first write.
func NewSink(cfg Config) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}
	cfg.setDefaults()
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
	}
	return &Sink{w: w, topic: cfg.Topic}, nil
}

func newWithWriter(w messageWriter, topic string) *Sink { return &Sink{w: w, topic: topic} }

// Message builds the Kafka record of f.
func Message(f audit.Fact) (kafka.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafka.Message{}, err
	}
	var key []byte
	if f.Payload != nil {
		vehicle, _ := f.Payload.Cell()
		key = strconv.AppendInt(nil, vehicle, 10)
	}
	return kafka.Message{
		Key:   key,
		Value: data,
		Time:  f.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(f.Action)},
			{Key: "fact_id", Value: []byte(f.ID.String())},
		},
	}, nil
}

func (s *Sink) Record(ctx context.Context, f audit.Fact) error {
	msg, err := Message(f)
	if err != nil {
		return fmt.Errorf("kafka: encode fact: %w", err)
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.w.Close() }
