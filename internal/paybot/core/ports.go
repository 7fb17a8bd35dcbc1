package core

import (
	"context"

	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
)

// PaymentService drives the payment conversation for one inbound update
type PaymentService interface {
	HandleUpdate(ctx context.Context, bot BotAPI) (*Outcome, error)
}

// BotAPI is the part of the Bot API client the payment flow uses
type BotAPI interface {
	GetData() telegram.Object
	SendMessage(ctx context.Context, params telegram.Params) telegram.Reply
	SendInvoice(ctx context.Context, params telegram.Params) telegram.Reply
	AnswerPreCheckoutQuery(ctx context.Context, params telegram.Params) telegram.Reply
}

// InvoiceLimiter caps how often a chat can request an invoice
type InvoiceLimiter interface {
	Allow(ctx context.Context, chatID int64) bool
}
