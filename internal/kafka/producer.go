package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Casework event names.
const (
	EventApplicationStatusChanged = "application.status_changed"
	EventApplicationSuggested     = "application.suggested"
	EventApplicationUpdated       = "application.updated"
	EventTicketCreated            = "ticket.created"
	EventTicketUpdated            = "ticket.updated"
	EventTicketClosed             = "ticket.closed"
	EventVisitChanged             = "visit.changed"
)

// EventProducer — интерфейс для отправки событий casework (для подмены в тестах).
// Best-effort: failures are logged, never returned.
type EventProducer interface {
	ProduceEvent(ctx context.Context, event, key string, payload map[string]any)
}

// DefaultWriteTimeout bounds one background event write.
const DefaultWriteTimeout = 5 * time.Second

// Producer пишет события casework в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer  *kafka.Writer
	topic   string
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewProducer создаёт продюсер. Если brokers или topic пустые, вызовы no-op.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(brokers) == 0 || topic == "" {
		return &Producer{logger: logger, timeout: DefaultWriteTimeout}
	}
	return &Producer{
		topic:   topic,
		timeout: DefaultWriteTimeout,
		logger:  logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// WithTimeout changes the bound of one background write.
func (p *Producer) WithTimeout(d time.Duration) *Producer {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// Enabled reports whether events actually leave the process.
func (p *Producer) Enabled() bool { return p.writer != nil }

// ProduceEvent отправляет {"event": event, ...payload} в фоне и сразу
// возвращается. key keeps events of one record on one partition.
// The write outlives the caller's cancellation but not the producer timeout.
func (p *Producer) ProduceEvent(ctx context.Context, event, key string, payload map[string]any) {
	if p.writer == nil {
		return
	}
	// Encoded on the caller's goroutine: payload may change after return.
	body, err := encodeEvent(event, payload)
	if err != nil {
		p.logger.Warn("kafka: marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if err := p.writer.WriteMessages(eventCtx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
			p.logger.Warn("kafka: write event", zap.String("event", event), zap.String("key", key), zap.Error(err))
		}
	}()
}

// Close ждёт незавершённые отправки и закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	p.wg.Wait()
	return p.writer.Close()
}

func encodeEvent(event string, payload map[string]any) ([]byte, error) {
	msg := map[string]any{"event": event}
	for k, v := range payload {
		if k == "event" {
			continue
		}
		msg[k] = v
	}
	return json.Marshal(msg)
}
