package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// TitleEvent summarizes one committed reconciliation of a title.
type TitleEvent struct {
	EventType        string         `json:"event_type"` // title.synced
	SubjectID        int64          `json:"subject_id"`
	SubjectKind      string         `json:"subject_kind"` // movie, series
	SubjectTitle     string         `json:"subject_title"`
	Outcome          string         `json:"outcome"` // inserted, updated, unchanged
	FieldsChanged    []string       `json:"fields_changed,omitempty"`
	LinksAdded       map[string]int `json:"links_added,omitempty"`
	ChildrenInserted int            `json:"children_inserted"`
	ChildrenUpdated  int            `json:"children_updated"`
	Timestamp        time.Time      `json:"timestamp"`
}

// PublishTitleEvent publishes a title event to Kafka
func (p *Producer) PublishTitleEvent(ctx context.Context, event *TitleEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishTitleEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.SubjectKind + ":" + strconv.FormatInt(event.SubjectID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "subject_kind", Value: []byte(event.SubjectKind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish title event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":   event.EventType,
		"subject_id":   event.SubjectID,
		"subject_kind": event.SubjectKind,
	}).Debug("Published title event")

	return nil
}
