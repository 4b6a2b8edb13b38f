package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"loan-engine/internal/domain/loan"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Channel() (channel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(channel), args.Error(1)
}

func newTestPublisher(t *testing.T, ch *MockChannel) (*RabbitMQEventPublisher, *MockConnection) {
	t.Helper()
	conn := new(MockConnection)
	conn.On("Channel").Return(ch, nil)
	ch.On("ExchangeDeclare", "loans", amqp.ExchangeTopic, true, false, false, false, amqp.Table(nil)).Return(nil).Once()
	ch.On("Close").Return(nil)

	p, err := newPublisher(conn, "loans", logger)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC) }
	return p, conn
}

func TestPublishLoanEvent(t *testing.T) {
	ch := new(MockChannel)
	p, _ := newTestPublisher(t, ch)
	event := loan.Event{ID: "evt-1", Kind: loan.EventStatusChanged, LoanID: 7, Status: loan.StatusApproved}

	var published amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, "loans", loan.EventStatusChanged, false, false, mock.AnythingOfType("amqp091.Publishing")).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	err := p.PublishLoanEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, "evt-1", published.MessageId)
	assert.Equal(t, publisherAppID, published.AppId)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(published.Body, &decoded))
	assert.Equal(t, float64(7), decoded["loanId"])
	assert.Equal(t, string(loan.StatusApproved), decoded["status"])
	ch.AssertExpectations(t)
}

func TestPublishLoanEvent_PublishFails(t *testing.T) {
	ch := new(MockChannel)
	p, _ := newTestPublisher(t, ch)
	ch.On("PublishWithContext", mock.Anything, "loans", loan.EventLoanChanged, false, false, mock.Anything).
		Return(errors.New("channel closed")).Once()

	err := p.PublishLoanEvent(context.Background(), loan.Event{ID: "evt-2", Kind: loan.EventLoanChanged})

	assert.ErrorContains(t, err, "failed to publish message")
}

func TestPublishLoanEvent_ChannelUnavailable(t *testing.T) {
	ch := new(MockChannel)
	p, conn := newTestPublisher(t, ch)
	conn.ExpectedCalls = nil
	conn.On("Channel").Return(nil, errors.New("connection closed"))

	err := p.PublishLoanEvent(context.Background(), loan.Event{ID: "evt-3", Kind: loan.EventLoanChanged})

	assert.ErrorContains(t, err, "failed to open channel")
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewRabbitMQEventPublisher(nil, "loans", logger)
	assert.ErrorContains(t, err, "connection cannot be nil")

	_, err = newPublisher(new(MockConnection), "", logger)
	assert.ErrorContains(t, err, "exchange name cannot be empty")

	ch := new(MockChannel)
	conn := new(MockConnection)
	conn.On("Channel").Return(ch, nil)
	ch.On("ExchangeDeclare", "loans", amqp.ExchangeTopic, true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused"))
	ch.On("Close").Return(nil)
	_, err = newPublisher(conn, "loans", logger)
	assert.ErrorContains(t, err, "failed to declare exchange")
}
