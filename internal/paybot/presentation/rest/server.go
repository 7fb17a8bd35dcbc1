package rest

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/presentation/rest/handlers"
	"gopkg.in/validator.v2"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// BotProvider hands out a Bot API client bound to one inbound update body
type BotProvider interface {
	ForUpdate(body io.Reader) core.BotAPI
}

type Server struct {
	paymentService core.PaymentService
	bots           BotProvider
	logger         *slog.Logger
	port           string
	webhookSecret  string
	readTimeout    time.Duration
	writeTimeout   time.Duration

	router     *gin.Engine
	httpServer *http.Server
}

type ServerConfig struct {
	PaymentService core.PaymentService `validate:"nonnil"`
	Bots           BotProvider         `validate:"nonnil"`
	Logger         *slog.Logger        `validate:"nonnil"`
	Port           string              `validate:"nonzero"`
	WebhookSecret  string
	ReadTimeout    time.Duration `validate:"nonzero"`
	WriteTimeout   time.Duration `validate:"nonzero"`
}

func NewServer(config ServerConfig) (*Server, error) {
	if err := validator.Validate(config); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		paymentService: config.PaymentService,
		bots:           config.Bots,
		logger:         config.Logger,
		port:           config.Port,
		webhookSecret:  config.WebhookSecret,
		readTimeout:    config.ReadTimeout,
		writeTimeout:   config.WriteTimeout,
		router:         router,
	}
	s.setup()

	return s, nil
}

// Handler returns the router wrapped in the middleware stack
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router

	// Apply middleware in reverse order (last applied is executed first)
	handler = Security(handler)
	handler = BodyLimit(maxUpdateBytes)(handler)
	handler = Logging(s.logger)(handler)
	handler = Recovery(s.logger)(handler)
	handler = RequestID(handler)

	return handler
}

// Start serves until ctx is cancelled, then shuts the server down
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.port,
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "Starting HTTP server", "address", s.port)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)

	case <-ctx.Done():
		s.logger.InfoContext(ctx, "Context cancelled, shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) setup() {
	s.router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, handlers.NewSuccessResponse(getRequestID(ctx.Request.Context()), "It's running!"))
	})

	// Telegram webhook handler
	s.router.POST("/telegram", s.handleWebhook)
}

func (s *Server) handleWebhook(ctx *gin.Context) {
	requestID := getRequestID(ctx.Request.Context())

	if s.webhookSecret != "" {
		token := ctx.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.webhookSecret)) != 1 {
			s.logger.WarnContext(ctx, "Invalid webhook secret token",
				"remote_addr", ctx.Request.RemoteAddr,
			)
			ctx.JSON(http.StatusUnauthorized, handlers.NewErrorResponse(requestID, "invalid webhook secret token"))
			return
		}
	}

	bot := s.bots.ForUpdate(ctx.Request.Body)
	outcome, err := s.paymentService.HandleUpdate(ctx.Request.Context(), bot)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to handle update",
			"error", err,
			"request_id", requestID,
		)
		// Any non-2xx status makes Telegram redeliver the update.
		ctx.JSON(http.StatusOK, handlers.NewErrorResponse(requestID, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, handlers.NewSuccessResponse(requestID, outcome))
}
