package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/platform/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultQueueSize = 1000
	writeTimeout     = 10 * time.Second
)

var jsonMarshal = json.Marshal

// KafkaWriter は kafka.Writer のうち Producer が利用する操作です。
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Observer はイベント送出結果の記録先です。
type Observer interface {
	ObserveEvent(eventType, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string) {}

// Producer はドメインイベントを Kafka へ非同期に送出します。キューが満杯の場合は破棄します。
type Producer struct {
	writer    KafkaWriter
	events    chan event.Event
	logger    *zap.Logger
	observer  Observer
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// mu は closed の確認とキュー投入を Close と排他にします。
	mu     sync.RWMutex
	closed bool
}

// NewProducer は brokers と topic に書き込む Producer を生成し、送出ループを開始します。
func NewProducer(brokers []string, topic string, logger *zap.Logger, observer Observer) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return newProducer(writer, logger, observer, defaultQueueSize)
}

func newProducer(writer KafkaWriter, logger *zap.Logger, observer Observer, queueSize int) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}

	p := &Producer{
		writer:    writer,
		events:    make(chan event.Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		observer:  observer,
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// Publish はイベントをキューに積みます。呼び出し元はブロックしません。
func (p *Producer) Publish(_ context.Context, e event.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(e, "Kafka producer closed, dropping event")
		return
	}

	select {
	case p.events <- e:
	default:
		p.drop(e, "Kafka producer queue full, dropping event")
	}
}

func (p *Producer) drop(e event.Event, msg string) {
	p.observer.ObserveEvent(string(e.Type), metrics.EventDropped)
	p.logger.Warn(msg,
		zap.String("event_type", string(e.Type)),
		zap.String("aggregate_id", e.AggregateID),
	)
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case e := <-p.events:
			p.sendEvent(e)
		case <-p.closeChan:
			for {
				select {
				case e := <-p.events:
					p.sendEvent(e)
				default:
					return
				}
			}
		}
	}
}

func (p *Producer) sendEvent(e event.Event) {
	value, err := jsonMarshal(e)
	if err != nil {
		p.observer.ObserveEvent(string(e.Type), metrics.EventFailed)
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("aggregate_id", e.AggregateID),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.AggregateID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		p.observer.ObserveEvent(string(e.Type), metrics.EventFailed)
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(e.Type)),
			zap.String("aggregate_id", e.AggregateID),
		)
		return
	}

	p.observer.ObserveEvent(string(e.Type), metrics.EventPublished)
}

// Close は未送出のイベントを送り切ってから writer を閉じます。
func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.closeChan)
		p.mu.Unlock()
	})
	<-p.done
	return p.writer.Close()
}
