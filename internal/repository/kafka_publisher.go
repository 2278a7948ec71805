package repository

import (
	"context"
	"time"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	pkgkafka "GrowthLens/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher emits one message per prediction row, keyed by report name
// so a report's rows stay ordered within a partition.
type KafkaPublisher struct {
	producer batchProducer
	topic    string
	now      func() time.Time
}

var _ domrepo.ResultPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

type predictionEnvelope struct {
	Report      string    `json:"report"`
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
	Seq         int       `json:"seq"`
	Total       int       `json:"total"`
	Row         any       `json:"row"`
}

func (p *KafkaPublisher) PublishLTV(ctx context.Context, report string, rows []models.LTVResult) error {
	payload := make([]any, len(rows))
	for i := range rows {
		payload[i] = rows[i]
	}
	return p.publish(ctx, report, models.ReportLTV, payload)
}

func (p *KafkaPublisher) PublishMAU(ctx context.Context, report string, rows []models.MAUResult) error {
	payload := make([]any, len(rows))
	for i := range rows {
		payload[i] = rows[i]
	}
	return p.publish(ctx, report, models.ReportMAU, payload)
}

func (p *KafkaPublisher) publish(ctx context.Context, report string, kind models.ReportKind, rows []any) error {
	if len(rows) == 0 {
		return nil
	}
	at := p.now().UTC()
	msgs := make([]pkgkafka.Message, len(rows))
	for i, r := range rows {
		msgs[i] = pkgkafka.Message{
			Key: []byte(report),
			Value: predictionEnvelope{
				Report:      report,
				Kind:        string(kind),
				GeneratedAt: at,
				Seq:         i,
				Total:       len(rows),
				Row:         r,
			},
			Headers: map[string]string{"kind": string(kind)},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
