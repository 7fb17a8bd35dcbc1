// Package poller feeds updates fetched with getUpdates to the payment service.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"gopkg.in/validator.v2"
)

// UpdatesAPI is a Bot API client whose current update can be replaced
type UpdatesAPI interface {
	core.BotAPI
	GetUpdates(ctx context.Context, params telegram.Params) telegram.Reply
	SetData(data telegram.Object)
}

type Poller struct {
	bot            UpdatesAPI
	paymentService core.PaymentService
	logger         *slog.Logger
	timeout        int
	retryDelay     time.Duration
	offset         int64
}

type Config struct {
	Bot            UpdatesAPI          `validate:"nonnil"`
	PaymentService core.PaymentService `validate:"nonnil"`
	Logger         *slog.Logger        `validate:"nonnil"`
	// Timeout is the long polling timeout in seconds.
	Timeout    int
	RetryDelay time.Duration
}

func New(cfg Config) (*Poller, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &Poller{
		bot:            cfg.Bot,
		paymentService: cfg.PaymentService,
		logger:         cfg.Logger,
		timeout:        cfg.Timeout,
		retryDelay:     retryDelay,
	}, nil
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Starting long polling", "timeout", p.timeout)

	for {
		if err := ctx.Err(); err != nil {
			p.logger.InfoContext(ctx, "Polling stopped")
			return nil
		}

		if ok := p.Poll(ctx); !ok {
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
			}
		}
	}
}

// Poll fetches one batch of updates and handles them in order. It reports
// whether the getUpdates call succeeded.
func (p *Poller) Poll(ctx context.Context) bool {
	reply := p.bot.GetUpdates(ctx, telegram.Params{
		"offset":  telegram.Int(p.offset),
		"timeout": telegram.Int(p.timeout),
		"allowed_updates": telegram.List{
			telegram.String("message"),
			telegram.String("pre_checkout_query"),
		},
	})
	if !reply.OK() {
		if ctx.Err() == nil {
			p.logger.WarnContext(ctx, "Failed to fetch updates",
				"error_code", reply.ErrorCode(),
				"description", reply.Description(),
			)
		}
		return false
	}

	updates, _ := reply.Result().(telegram.List)
	for _, item := range updates {
		update, ok := item.(telegram.Object)
		if !ok {
			continue
		}
		if id := update.Query("update_id").Int(); id >= p.offset {
			p.offset = id + 1
		}

		p.bot.SetData(update)
		outcome, err := p.paymentService.HandleUpdate(ctx, p.bot)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to handle update",
				"update_id", update.Query("update_id").Int(),
				"error", err,
			)
			continue
		}
		p.logger.InfoContext(ctx, "Update processed",
			"update_id", outcome.UpdateID,
			"action", outcome.Action,
		)
	}
	return true
}

// Offset is the next update id to request.
func (p *Poller) Offset() int64 {
	return p.offset
}
