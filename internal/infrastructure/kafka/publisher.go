// Package kafka publica los eventos del ledger de stock en un topic de Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

// ErrBufferFull el buffer interno está lleno; el evento se descarta.
var ErrBufferFull = errors.New("kafka: buffer de eventos lleno")

// ErrClosed el publicador ya fue cerrado.
var ErrClosed = errors.New("kafka: publicador cerrado")

const producerName = "inventario-ledger-api"

// Envelope sobre común de los eventos publicados.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    inventory.Event `json:"payload"`
}

var _ inventory.EventPublisher = (*Publisher)(nil)

// Publisher encola eventos y los escribe desde una goroutine; la petición HTTP nunca espera al broker.
type Publisher struct {
	w     *kafka.Writer
	log   *logger.Logger
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewPublisher construye el writer y arranca el loop de envío. buf <= 0 usa 256.
func NewPublisher(brokers []string, topic string, buf int, log *logger.Logger) *Publisher {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		log:   log.Component("kafka"),
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
	go p.loop()
	return p
}

// Publish encola el evento con clave product_id para conservar el orden por producto.
func (p *Publisher) Publish(_ context.Context, event inventory.Event) error {
	msg, err := encode(event, uuid.NewString())
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.w.WriteMessages(ctx, m); err != nil {
			p.log.Error().Err(err).Str("key", string(m.Key)).Msg("kafka: no se pudo publicar el evento")
		}
		cancel()
	}
}

// Close deja de aceptar eventos, vacía el buffer y cierra el writer.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.w.Close()
}

func encode(event inventory.Event, eventID string) (kafka.Message, error) {
	env := Envelope{
		EventID:    eventID,
		EventType:  event.Type,
		OccurredAt: event.OccurredAt.UTC(),
		Producer:   producerName,
		Payload:    event,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.ProductID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
