package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"shopflow/internal/config"
	"shopflow/internal/model"
	"shopflow/pkg/broker"
)

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	args := m.Called(ctx, tx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetPendingMessages(ctx context.Context, queue string, limit int) ([]*model.OutboxMessage, error) {
	args := m.Called(ctx, queue, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxMessage), args.Error(1)
}

func (m *mockOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) IncrementRetryCount(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMsg
	err       error
}

type publishedMsg struct {
	queue string
	body  string
}

func (p *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMsg{queue: queue, body: string(body)})
	return nil
}

func testOutboxConfig() config.OutboxConfig {
	return config.OutboxConfig{
		Interval:   5 * time.Millisecond,
		BatchSize:  10,
		MaxRetries: 3,
	}
}

func TestProcessPending_PublishesInOrder(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return([]*model.OutboxMessage{
		{ID: 1, Queue: model.QueuePayment, Payload: `{"seq":1}`},
		{ID: 2, Queue: model.QueuePayment, Payload: `{"seq":2}`},
	}, nil)
	repo.On("MarkSent", mock.Anything, int64(1)).Return(nil)
	repo.On("MarkSent", mock.Anything, int64(2)).Return(nil)

	relay.ProcessPending(context.Background())

	assert.Equal(t, []publishedMsg{
		{queue: model.QueuePayment, body: `{"seq":1}`},
		{queue: model.QueuePayment, body: `{"seq":2}`},
	}, pub.published)
	repo.AssertExpectations(t)
}

func TestProcessPending_PublishFailureBumpsRetry(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{err: errors.New("channel closed by broker")}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return([]*model.OutboxMessage{
		{ID: 1, Queue: model.QueuePayment, Payload: `{}`, RetryCount: 0},
	}, nil)
	repo.On("IncrementRetryCount", mock.Anything, int64(1)).Return(nil)

	relay.ProcessPending(context.Background())

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestProcessPending_RetryBudgetExhaustedMarksFailed(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{err: errors.New("channel closed by broker")}
	relay := NewOutboxRelay(repo, pub, model.QueueNotification, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueueNotification, 10).Return([]*model.OutboxMessage{
		{ID: 1, Queue: model.QueueNotification, Payload: `{}`, RetryCount: 2},
	}, nil)
	repo.On("MarkFailed", mock.Anything, int64(1)).Return(nil)

	relay.ProcessPending(context.Background())

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "IncrementRetryCount", mock.Anything, mock.Anything)
}

func TestProcessPending_BrokerNotConnectedLeavesRowsPending(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{err: broker.ErrNotConnected}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return([]*model.OutboxMessage{
		{ID: 1, Queue: model.QueuePayment, Payload: `{}`, RetryCount: 0},
		{ID: 2, Queue: model.QueuePayment, Payload: `{}`, RetryCount: 0},
	}, nil)

	// Many more ticks than the retry budget. An outage only defers the
	// rows; none of them may burn retries or be marked failed.
	for i := 0; i < 5; i++ {
		relay.ProcessPending(context.Background())
	}

	repo.AssertNotCalled(t, "IncrementRetryCount", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
	assert.Empty(t, pub.published)
}

func TestProcessPending_NotConnectedStopsBatch(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{err: broker.ErrNotConnected}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return([]*model.OutboxMessage{
		{ID: 1, Queue: model.QueuePayment, Payload: `{}`},
		{ID: 2, Queue: model.QueuePayment, Payload: `{}`},
		{ID: 3, Queue: model.QueuePayment, Payload: `{}`},
	}, nil)

	relay.ProcessPending(context.Background())

	// The first deferred row stops the batch; the rest are not attempted.
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.published)
	repo.AssertNumberOfCalls(t, "GetPendingMessages", 1)
}

func TestProcessPending_LoadErrorSkipsTick(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return(nil, errors.New("db gone"))

	relay.ProcessPending(context.Background())

	assert.Empty(t, pub.published)
}

func TestRelay_StartStop(t *testing.T) {
	repo := new(mockOutboxRepo)
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, model.QueuePayment, testOutboxConfig())

	repo.On("GetPendingMessages", mock.Anything, model.QueuePayment, 10).Return([]*model.OutboxMessage{}, nil)

	relay.Start(context.Background())

	assert.Eventually(t, func() bool {
		return len(repo.Calls) > 0
	}, time.Second, 5*time.Millisecond)

	relay.Stop()
}
