package core_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
)

// Test Helper Functions

func getTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func createTestInvoice() core.Invoice {
	return core.Invoice{
		Title:         "Test item",
		Description:   "Test item #1",
		Payload:       "test",
		ProviderToken: "11111111111:TEST:000",
		Currency:      "RUB",
		ProviderData:  `{"InvoiceId":100}`,
		Prices:        []core.LabeledPrice{{Label: "RUB", Amount: 10000}},
	}
}

func createTestService(t *testing.T) *core.Service {
	service, err := core.NewService(core.ServiceConfig{
		Invoice: createTestInvoice(),
		Logger:  getTestLogger(),
	})
	require.NoError(t, err)
	return service
}

func update(t *testing.T, doc string) telegram.Object {
	t.Helper()
	obj, err := telegram.DecodeObject([]byte(doc))
	require.NoError(t, err)
	return obj
}

func okReply() telegram.Reply {
	return telegram.Reply{Object: telegram.NewObject(telegram.Field{Key: "ok", Value: telegram.Bool(true)})}
}

func failedReply(description string) telegram.Reply {
	return telegram.Reply{Object: telegram.NewObject(
		telegram.Field{Key: "ok", Value: telegram.Bool(false)},
		telegram.Field{Key: "error_code", Value: telegram.Int(400)},
		telegram.Field{Key: "description", Value: telegram.String(description)},
	)}
}

func TestNewService_InvalidInvoice(t *testing.T) {
	invoice := createTestInvoice()
	invoice.Prices = nil

	service, err := core.NewService(core.ServiceConfig{Invoice: invoice, Logger: getTestLogger()})
	assert.Error(t, err)
	assert.Nil(t, service)
}

func TestService_HandleUpdate_PayCommandSendsInvoice(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	ctx := context.Background()

	bot.On("GetData").Return(update(t, `{"update_id":10,"message":{"chat":{"id":42},"text":" /pay "}}`))
	bot.On("SendInvoice", ctx, mock.MatchedBy(func(p telegram.Params) bool {
		return p["chat_id"] == telegram.Int(42) &&
			p["currency"] == telegram.String("RUB") &&
			p["provider_data"] == telegram.String(`{"InvoiceId":100}`)
	})).Return(okReply())

	outcome, err := service.HandleUpdate(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionInvoiceSent, outcome.Action)
	assert.Equal(t, int64(10), outcome.UpdateID)
	assert.Equal(t, int64(42), outcome.ChatID)
	bot.AssertExpectations(t)
}

func TestService_HandleUpdate_PreCheckoutIsAccepted(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	ctx := context.Background()

	bot.On("GetData").Return(update(t, `{"update_id":11,"pre_checkout_query":{"id":"q-77","currency":"RUB"}}`))
	bot.On("AnswerPreCheckoutQuery", ctx, telegram.Params{
		"pre_checkout_query_id": telegram.String("q-77"),
		"ok":                    telegram.Bool(true),
	}).Return(okReply())

	outcome, err := service.HandleUpdate(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionCheckoutAnswered, outcome.Action)
	bot.AssertExpectations(t)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestService_HandleUpdate_SuccessfulPaymentIsAcknowledged(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	ctx := context.Background()

	bot.On("GetData").Return(update(t, `{"update_id":12,"message":{"chat":{"id":42},"successful_payment":{"currency":"RUB","total_amount":10000}}}`))
	bot.On("SendMessage", ctx, telegram.Params{
		"chat_id": telegram.Int(42),
		"text":    telegram.String(core.PaymentConfirmedReply),
	}).Return(okReply())

	outcome, err := service.HandleUpdate(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionPaymentConfirmed, outcome.Action)
	bot.AssertExpectations(t)
}

func TestService_HandleUpdate_IgnoresOtherUpdates(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}

	bot.On("GetData").Return(update(t, `{"update_id":13,"message":{"chat":{"id":42},"text":"hello"}}`))

	outcome, err := service.HandleUpdate(context.Background(), bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionIgnored, outcome.Action)
	bot.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestService_HandleUpdate_EmptyUpdate(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	bot.On("GetData").Return(telegram.Object{})

	outcome, err := service.HandleUpdate(context.Background(), bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionIgnored, outcome.Action)
}

func TestService_HandleUpdate_PayWithoutChat(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	bot.On("GetData").Return(update(t, `{"message":{"text":"/pay"}}`))

	_, err := service.HandleUpdate(context.Background(), bot)
	assert.ErrorIs(t, err, core.ErrNoChat)
}

func TestService_HandleUpdate_FailedReplyBecomesServiceError(t *testing.T) {
	service := createTestService(t)
	bot := &MockBotAPI{}
	ctx := context.Background()

	bot.On("GetData").Return(update(t, `{"message":{"chat":{"id":42},"text":"/pay"}}`))
	bot.On("SendInvoice", ctx, mock.Anything).Return(failedReply("Bad Request: CURRENCY_INVALID"))

	_, err := service.HandleUpdate(ctx, bot)
	require.Error(t, err)

	var serviceErr core.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "send_invoice", serviceErr.Code)
	assert.Contains(t, serviceErr.Message, "CURRENCY_INVALID")
}

type stubLimiter struct {
	allow bool
	chats []int64
}

func (l *stubLimiter) Allow(_ context.Context, chatID int64) bool {
	l.chats = append(l.chats, chatID)
	return l.allow
}

func TestService_HandleUpdate_PayCommandRateLimited(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	service, err := core.NewService(core.ServiceConfig{
		Invoice: createTestInvoice(),
		Limiter: limiter,
		Logger:  getTestLogger(),
	})
	require.NoError(t, err)

	bot := &MockBotAPI{}
	bot.On("GetData").Return(update(t, `{"update_id":3,"message":{"chat":{"id":42},"text":"/pay"}}`))

	outcome, err := service.HandleUpdate(context.Background(), bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionRateLimited, outcome.Action)
	assert.Equal(t, []int64{42}, limiter.chats)
	bot.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything)

	limiter.allow = true
	bot.On("SendInvoice", mock.Anything, mock.Anything).Return(okReply())
	outcome, err = service.HandleUpdate(context.Background(), bot)
	require.NoError(t, err)
	assert.Equal(t, core.ActionInvoiceSent, outcome.Action)
}

func TestService_InvoiceParams(t *testing.T) {
	service := createTestService(t)

	params := service.InvoiceParams(42)
	assert.Equal(t, telegram.String("Test item"), params["title"])
	assert.Equal(t, `[{"label":"RUB","amount":10000}]`, telegram.FormatScalar(params["prices"]))
}

// Mocks for all dependencies

type MockBotAPI struct {
	mock.Mock
}

func (m *MockBotAPI) GetData() telegram.Object {
	args := m.Called()
	return args.Get(0).(telegram.Object)
}

func (m *MockBotAPI) SendMessage(ctx context.Context, params telegram.Params) telegram.Reply {
	args := m.Called(ctx, params)
	return args.Get(0).(telegram.Reply)
}

func (m *MockBotAPI) SendInvoice(ctx context.Context, params telegram.Params) telegram.Reply {
	args := m.Called(ctx, params)
	return args.Get(0).(telegram.Reply)
}

func (m *MockBotAPI) AnswerPreCheckoutQuery(ctx context.Context, params telegram.Params) telegram.Reply {
	args := m.Called(ctx, params)
	return args.Get(0).(telegram.Reply)
}
