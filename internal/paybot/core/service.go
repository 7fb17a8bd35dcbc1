package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"gopkg.in/validator.v2"
)

const (
	PayCommand            = "/pay"
	PaymentConfirmedReply = "Successful payment"
)

// Service implements the PaymentService interface
type Service struct {
	invoice Invoice
	limiter InvoiceLimiter
	logger  *slog.Logger
}

type ServiceConfig struct {
	Invoice Invoice
	// Limiter is optional.
	Limiter InvoiceLimiter
	Logger  *slog.Logger `validate:"nonnil"`
}

// NewService creates a new payment service
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return &Service{
		invoice: cfg.Invoice,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
	}, nil
}

// HandleUpdate answers the update currently held by bot:
// the pay command gets an invoice, a pre-checkout query is accepted and a
// successful payment is acknowledged in the chat.
func (s *Service) HandleUpdate(ctx context.Context, bot BotAPI) (*Outcome, error) {
	data := bot.GetData()

	outcome := &Outcome{
		UpdateID: data.Query("update_id").Int(),
		ChatID:   data.Query("message.chat.id").Int(),
		Action:   ActionIgnored,
	}

	if strings.TrimSpace(data.Query("message.text").String()) == PayCommand {
		if s.limiter != nil && !s.limiter.Allow(ctx, outcome.ChatID) {
			outcome.Action = ActionRateLimited
		} else {
			if err := s.sendInvoice(ctx, bot, outcome.ChatID); err != nil {
				return outcome, err
			}
			outcome.Action = ActionInvoiceSent
		}
	}

	if checkout := data.Query("pre_checkout_query.id"); checkout.Exists() && checkout.String() != "" {
		reply := bot.AnswerPreCheckoutQuery(ctx, telegram.Params{
			"pre_checkout_query_id": telegram.String(checkout.String()),
			"ok":                    telegram.Bool(true),
		})
		if err := replyError("answer_pre_checkout_query", reply); err != nil {
			return outcome, err
		}
		outcome.Action = ActionCheckoutAnswered
	} else if data.Query("message.successful_payment").Exists() {
		reply := bot.SendMessage(ctx, telegram.Params{
			"chat_id": telegram.Int(outcome.ChatID),
			"text":    telegram.String(PaymentConfirmedReply),
		})
		if err := replyError("send_message", reply); err != nil {
			return outcome, err
		}
		outcome.Action = ActionPaymentConfirmed
	}

	s.logger.DebugContext(ctx, "Update handled",
		"update_id", outcome.UpdateID,
		"chat_id", outcome.ChatID,
		"action", outcome.Action,
	)

	return outcome, nil
}

func (s *Service) sendInvoice(ctx context.Context, bot BotAPI, chatID int64) error {
	if chatID == 0 {
		return NewServiceError("send_invoice", "cannot send invoice", ErrNoChat)
	}

	reply := bot.SendInvoice(ctx, s.InvoiceParams(chatID))
	return replyError("send_invoice", reply)
}

// InvoiceParams builds the sendInvoice parameters for chatID
func (s *Service) InvoiceParams(chatID int64) telegram.Params {
	prices := make(telegram.List, 0, len(s.invoice.Prices))
	for _, p := range s.invoice.Prices {
		prices = append(prices, telegram.NewObject(
			telegram.Field{Key: "label", Value: telegram.String(p.Label)},
			telegram.Field{Key: "amount", Value: telegram.Int(p.Amount)},
		))
	}

	params := telegram.Params{
		"chat_id":        telegram.Int(chatID),
		"title":          telegram.String(s.invoice.Title),
		"description":    telegram.String(s.invoice.Description),
		"payload":        telegram.String(s.invoice.Payload),
		"provider_token": telegram.String(s.invoice.ProviderToken),
		"currency":       telegram.String(s.invoice.Currency),
		"prices":         prices,
	}
	if s.invoice.ProviderData != "" {
		params["provider_data"] = telegram.String(s.invoice.ProviderData)
	}
	return params
}

func replyError(code string, reply telegram.Reply) error {
	if reply.OK() {
		return nil
	}
	return NewServiceError(code,
		fmt.Sprintf("telegram API error (%d): %s", reply.ErrorCode(), reply.Description()),
		nil,
	)
}
