package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/platform/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: make(map[string]int)}
}

func (o *recordingObserver) ObserveEvent(eventType, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[eventType+"/"+outcome]++
}

func (o *recordingObserver) count(eventType, outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[eventType+"/"+outcome]
}

func sampleEvent() event.Event {
	return event.Event{
		Type:        event.EmployeeStatusChanged,
		AggregateID: "employee-1",
		ActorID:     "user-1",
		OccurredAt:  time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC),
		Payload:     map[string]any{"previous_status": "application_received", "status": "interview_scheduled"},
	}
}

func TestNewProducer(t *testing.T) {
	t.Parallel()

	producer := NewProducer([]string{"localhost:9092"}, "events", zaptest.NewLogger(t), nil)
	defer producer.Close()

	assert.NotNil(t, producer.writer)
	assert.Equal(t, defaultQueueSize, cap(producer.events))
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestProducer_PublishAndClose(t *testing.T) {
	t.Parallel()

	writer := new(MockKafkaWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	writer.On("Close").Return(nil)
	obs := newRecordingObserver()

	producer := newProducer(writer, zaptest.NewLogger(t), obs, 10)
	e := sampleEvent()
	producer.Publish(context.Background(), e)

	require.NoError(t, producer.Close())

	value, err := jsonMarshal(e)
	require.NoError(t, err)
	writer.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
		{
			Key:     []byte("employee-1"),
			Value:   value,
			Time:    e.OccurredAt,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.EmployeeStatusChanged)}},
		},
	})
	writer.AssertCalled(t, "Close")
	assert.Equal(t, 1, obs.count(string(event.EmployeeStatusChanged), metrics.EventPublished))
}

func TestProducer_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zap.WarnLevel)
	obs := newRecordingObserver()

	// 送出ループを起動せずにキュー溢れを確認します。
	producer := &Producer{
		events:    make(chan event.Event, 1),
		logger:    zap.New(core),
		observer:  obs,
		closeChan: make(chan struct{}),
	}

	producer.Publish(context.Background(), sampleEvent())
	producer.Publish(context.Background(), sampleEvent())

	assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	assert.Equal(t, 1, obs.count(string(event.EmployeeStatusChanged), metrics.EventDropped))
}

func TestProducer_DropsAfterClose(t *testing.T) {
	t.Parallel()

	writer := new(MockKafkaWriter)
	writer.On("Close").Return(nil)
	core, recorded := observer.New(zap.WarnLevel)
	obs := newRecordingObserver()

	producer := newProducer(writer, zap.New(core), obs, 10)
	require.NoError(t, producer.Close())

	producer.Publish(context.Background(), sampleEvent())

	assert.Equal(t, 1, recorded.FilterMessage("Kafka producer closed, dropping event").Len())
	assert.Equal(t, 1, obs.count(string(event.EmployeeStatusChanged), metrics.EventDropped))
	writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestProducer_PublishRacingCloseIsPublishedOrDropped(t *testing.T) {
	t.Parallel()

	writer := new(MockKafkaWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	writer.On("Close").Return(nil)
	obs := newRecordingObserver()

	const publishers, perPublisher = 8, 50
	producer := newProducer(writer, zap.NewNop(), obs, publishers*perPublisher)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perPublisher; j++ {
				producer.Publish(context.Background(), sampleEvent())
			}
		}()
	}

	close(start)
	require.NoError(t, producer.Close())
	wg.Wait()

	eventType := string(event.EmployeeStatusChanged)
	published := obs.count(eventType, metrics.EventPublished)
	dropped := obs.count(eventType, metrics.EventDropped)
	assert.Equal(t, publishers*perPublisher, published+dropped)
	writer.AssertNumberOfCalls(t, "WriteMessages", published)
}

func TestProducer_SendEventErrors(t *testing.T) {
	t.Run("write error", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))
		core, recorded := observer.New(zap.ErrorLevel)
		obs := newRecordingObserver()

		producer := &Producer{writer: writer, logger: zap.New(core), observer: obs}
		producer.sendEvent(sampleEvent())

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
		assert.Equal(t, 1, obs.count(string(event.EmployeeStatusChanged), metrics.EventFailed))
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer := &Producer{writer: new(MockKafkaWriter), logger: zap.New(core), observer: nopObserver{}}

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ any) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(sampleEvent())

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("aggregate_id", "employee-1")).Len())
	})
}
