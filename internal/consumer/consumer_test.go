package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"shopflow/internal/config"
	"shopflow/internal/model"
)

type mockAcknowledger struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue bool
}

func (a *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = requeue
	return nil
}

func (a *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeChannel struct {
	mu         sync.Mutex
	published  map[string][][]byte
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{published: make(map[string][][]byte)}
}

func (c *fakeChannel) DeclareQueue(name string) error { return nil }

func (c *fakeChannel) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published[queue] = append(c.published[queue], body)
	return nil
}

func (c *fakeChannel) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeChannel) Qos(prefetch int) error { return nil }
func (c *fakeChannel) Close() error           { return nil }

func testConfig() config.ConsumerConfig {
	return config.ConsumerConfig{
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Prefetch:    1,
	}
}

func delivery(body []byte) (amqp.Delivery, *mockAcknowledger) {
	ack := &mockAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}, ack
}

func TestDispatch_AckResult(t *testing.T) {
	ch := newFakeChannel()
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		return ResultAck
	}, testConfig())

	d, ack := delivery([]byte(`{}`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ch.published)
}

func TestDispatch_RetryThenSuccess(t *testing.T) {
	ch := newFakeChannel()
	calls := 0
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		calls++
		if calls < 3 {
			return ResultRetry
		}
		return ResultAck
	}, testConfig())

	d, ack := delivery([]byte(`{}`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ch.published)
}

func TestDispatch_RetryExhaustedDeadLetters(t *testing.T) {
	ch := newFakeChannel()
	calls := 0
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		calls++
		return ResultRetry
	}, testConfig())

	d, ack := delivery([]byte(`{"k":"v"}`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, ack.acks)
	assert.Len(t, ch.published["jobs.dlq"], 1)
	assert.Equal(t, []byte(`{"k":"v"}`), ch.published["jobs.dlq"][0])
}

func TestDispatch_DropDeadLettersImmediately(t *testing.T) {
	ch := newFakeChannel()
	calls := 0
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		calls++
		return ResultDrop
	}, testConfig())

	d, ack := delivery([]byte(`not json`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ack.acks)
	assert.Len(t, ch.published["jobs.dlq"], 1)
}

func TestDispatch_PanicDropsToDeadLetter(t *testing.T) {
	ch := newFakeChannel()
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		panic("boom")
	}, testConfig())

	d, ack := delivery([]byte(`{}`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 1, ack.acks)
	assert.Len(t, ch.published["jobs.dlq"], 1)
}

func TestDispatch_DeadLetterPublishFailureRequeues(t *testing.T) {
	ch := newFakeChannel()
	ch.publishErr = errors.New("channel gone")
	c := New(nil, "jobs", "t", func(ctx context.Context, d amqp.Delivery) Result {
		return ResultDrop
	}, testConfig())

	d, ack := delivery([]byte(`{}`))
	c.dispatch(context.Background(), ch, d)

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
}

type stubPaymentService struct {
	err   error
	calls []*model.PaymentMessage
}

func (s *stubPaymentService) ProcessPayment(ctx context.Context, msg *model.PaymentMessage) (*model.PaymentRecord, error) {
	s.calls = append(s.calls, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &model.PaymentRecord{ID: 1, Bill: msg.Price * int64(msg.Qty)}, nil
}

func TestPaymentHandler_Success(t *testing.T) {
	svc := &stubPaymentService{}
	handler := paymentHandler(svc)

	body, _ := json.Marshal(model.PaymentMessage{
		UserID: 1, ProductID: 2, ProductName: "Mechanical Keyboard", Qty: 3, Price: 100000,
	})
	d, _ := delivery(body)

	res := handler(context.Background(), d)

	assert.Equal(t, ResultAck, res)
	assert.Len(t, svc.calls, 1)
	assert.Equal(t, uint64(1), svc.calls[0].UserID)
	assert.Equal(t, int64(100000), svc.calls[0].Price)
}

func TestPaymentHandler_MalformedBodyDrops(t *testing.T) {
	svc := &stubPaymentService{}
	handler := paymentHandler(svc)

	d, _ := delivery([]byte(`{not valid`))
	res := handler(context.Background(), d)

	assert.Equal(t, ResultDrop, res)
	assert.Empty(t, svc.calls)
}

func TestPaymentHandler_ServiceErrorRetries(t *testing.T) {
	svc := &stubPaymentService{err: errors.New("db down")}
	handler := paymentHandler(svc)

	body, _ := json.Marshal(model.PaymentMessage{UserID: 1, ProductID: 2, Qty: 3, Price: 100000})
	d, _ := delivery(body)

	res := handler(context.Background(), d)

	assert.Equal(t, ResultRetry, res)
}

type stubNotificationService struct {
	notified []*model.NotificationMessage
}

func (s *stubNotificationService) Notify(msg *model.NotificationMessage) int {
	s.notified = append(s.notified, msg)
	return len(s.notified)
}

func (s *stubNotificationService) NotifyTest() int { return 0 }

func TestNotificationHandler_Success(t *testing.T) {
	svc := &stubNotificationService{}
	handler := notificationHandler(svc)

	body, _ := json.Marshal(model.NotificationMessage{UserID: 1, ProductID: 2, Qty: 3, Bill: 300000})
	d, _ := delivery(body)

	res := handler(context.Background(), d)

	assert.Equal(t, ResultAck, res)
	assert.Len(t, svc.notified, 1)
	assert.Equal(t, int64(300000), svc.notified[0].Bill)
}

func TestNotificationHandler_MalformedBodyDrops(t *testing.T) {
	svc := &stubNotificationService{}
	handler := notificationHandler(svc)

	d, _ := delivery([]byte(`oops`))
	res := handler(context.Background(), d)

	assert.Equal(t, ResultDrop, res)
	assert.Empty(t, svc.notified)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "ack", ResultAck.String())
	assert.Equal(t, "retry", ResultRetry.String())
	assert.Equal(t, "drop", ResultDrop.String())
	assert.Equal(t, "unknown", Result(42).String())
}
