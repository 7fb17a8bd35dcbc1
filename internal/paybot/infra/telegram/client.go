package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/validator.v2"
)

const DefaultBaseURL = "https://api.telegram.org"

// ErrorLogger records failed calls. Implementations must not panic or block
// for long; the client ignores anything they do.
type ErrorLogger interface {
	Log(reply Reply, contexts ...Object)
}

type Client struct {
	baseURL    string
	botToken   string
	logErrors  bool
	httpClient *http.Client
	errLogger  ErrorLogger
	logger     *slog.Logger
	scrubber   *strings.Replacer

	input  io.Reader
	data   Object
	loaded bool
}

type ClientConfig struct {
	BaseURL  string
	BotToken string `validate:"nonzero"`

	// LogErrors enables ErrorLogger for failed calls.
	LogErrors   bool
	ErrorLogger ErrorLogger

	// Proxy is ignored when HTTPClient is set.
	Proxy      *ProxyConfig
	HTTPClient *http.Client

	// Input is the inbound update body, typically a webhook request body.
	Input io.Reader

	Logger *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Proxy)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		botToken:   cfg.BotToken,
		logErrors:  cfg.LogErrors,
		httpClient: httpClient,
		errLogger:  cfg.ErrorLogger,
		logger:     logger,
		scrubber:   strings.NewReplacer(cfg.BotToken, "[TOKEN]"),
		input:      cfg.Input,
	}, nil
}

// ForInput returns a client sharing c's configuration and transport whose
// inbound update is read from r.
func (c *Client) ForInput(r io.Reader) *Client {
	return &Client{
		baseURL:    c.baseURL,
		botToken:   c.botToken,
		logErrors:  c.logErrors,
		httpClient: c.httpClient,
		errLogger:  c.errLogger,
		logger:     c.logger,
		scrubber:   c.scrubber,
		input:      r,
	}
}

func (c *Client) botURL() string {
	return c.baseURL + "/bot" + c.botToken
}

// Endpoint calls the named Bot API method with params sent as a POST body.
func (c *Client) Endpoint(ctx context.Context, api string, params Params) Reply {
	return c.send(ctx, http.MethodPost, api, params)
}

// EndpointGet calls the named Bot API method with a bodyless GET. Params are
// sent in the query string.
func (c *Client) EndpointGet(ctx context.Context, api string, params Params) Reply {
	return c.send(ctx, http.MethodGet, api, params)
}

// SendMessage, see https://core.telegram.org/bots/api#sendmessage
func (c *Client) SendMessage(ctx context.Context, params Params) Reply {
	return c.Endpoint(ctx, "sendMessage", params)
}

// SendInvoice, see https://core.telegram.org/bots/api#sendinvoice
func (c *Client) SendInvoice(ctx context.Context, params Params) Reply {
	return c.Endpoint(ctx, "sendInvoice", params)
}

// AnswerPreCheckoutQuery, see https://core.telegram.org/bots/api#answerprecheckoutquery
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, params Params) Reply {
	return c.Endpoint(ctx, "answerPreCheckoutQuery", params)
}

func (c *Client) GetMe(ctx context.Context) Reply {
	return c.EndpointGet(ctx, "getMe", nil)
}

// GetUpdates, see https://core.telegram.org/bots/api#getupdates
func (c *Client) GetUpdates(ctx context.Context, params Params) Reply {
	return c.Endpoint(ctx, "getUpdates", params)
}

// GetData returns the current inbound update. The input is read and decoded on
// the first call only; an empty or malformed body yields an empty object.
func (c *Client) GetData() Object {
	if c.loaded {
		return c.data
	}
	c.loaded = true

	if c.input == nil {
		return c.data
	}
	raw, err := io.ReadAll(c.input)
	if err != nil {
		c.logger.Warn("Failed to read inbound update", "error", err)
		return c.data
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return c.data
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		c.logger.Warn("Failed to decode inbound update", "error", err, "size", len(raw))
		return c.data
	}
	c.data = obj
	return c.data
}

// SetData replaces the inbound update, e.g. with one fetched by getUpdates.
func (c *Client) SetData(data Object) {
	c.data = data
	c.loaded = true
}

func (c *Client) send(ctx context.Context, method, api string, params Params) Reply {
	params = params.clone()

	// chat_id always leads the query string
	var chatQuery string
	if chatID, ok := params["chat_id"]; ok {
		if _, isNull := chatID.(Null); !isNull && chatID != nil {
			chatQuery = "chat_id=" + url.QueryEscape(FormatScalar(chatID))
		}
		delete(params, "chat_id")
	}

	query := url.Values{}
	var (
		body        io.Reader
		contentType string
	)
	if method == http.MethodPost {
		buf, ct, err := encodeForm(params)
		if err != nil {
			reply := failureReply(CodeTransportFailure, c.scrub(err))
			c.logFailure(reply, params)
			return reply
		}
		body, contentType = buf, ct
	} else {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, isNull := params[k].(Null); isNull {
				continue
			}
			query.Set(k, FormatScalar(params[k]))
		}
	}

	rawQuery := chatQuery
	if rest := query.Encode(); rest != "" {
		if rawQuery != "" {
			rawQuery += "&"
		}
		rawQuery += rest
	}

	apiURL := c.botURL() + "/" + api
	if rawQuery != "" {
		apiURL += "?" + rawQuery
	}

	reply := c.do(ctx, method, apiURL, body, contentType)
	c.logFailure(reply, params)
	return reply
}

func (c *Client) do(ctx context.Context, method, apiURL string, body io.Reader, contentType string) Reply {
	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return failureReply(CodeTransportFailure, c.scrub(err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Telegram API request failed",
			slog.String("method", method),
			slog.String("error", c.scrub(err)))
		return failureReply(transportErrorCode(err), c.scrub(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureReply(CodeReceiveFailure, c.scrub(err))
	}

	obj, err := DecodeObject(raw)
	if err != nil {
		c.logger.WarnContext(ctx, "Telegram API returned a non-JSON reply",
			slog.Int("status_code", resp.StatusCode),
			slog.Int("size", len(raw)))
		return failureReply(resp.StatusCode, fmt.Sprintf("invalid reply: %s", http.StatusText(resp.StatusCode)))
	}
	reply := Reply{Object: obj}

	c.logger.DebugContext(ctx, "Telegram API call completed",
		slog.String("method", method),
		slog.Int("status_code", resp.StatusCode),
		slog.Bool("ok", reply.OK()))

	return reply
}

// logFailure hands the reply to the error logger. Nothing it does reaches the caller.
func (c *Client) logFailure(reply Reply, sent Params) {
	if !c.logErrors || c.errLogger == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Error logger panicked", "panic", r)
		}
	}()

	contexts := []Object{sent.Object()}
	if data := c.GetData(); data.Len() > 0 {
		contexts = []Object{data, sent.Object()}
	}
	c.errLogger.Log(reply, contexts...)
}

func (c *Client) scrub(err error) string {
	return c.scrubber.Replace(err.Error())
}

// encodeForm writes params as multipart/form-data. Lists and objects are sent
// as JSON, null values are skipped.
func encodeForm(params Params) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := params[key].(type) {
		case nil, Null:
			continue
		case File:
			if err := writeFile(writer, key, v); err != nil {
				return nil, "", err
			}
		case String, Int, Float, Bool, List, Object:
			if err := writer.WriteField(key, FormatScalar(v)); err != nil {
				return nil, "", fmt.Errorf("failed to write %s field: %w", key, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func writeFile(writer *multipart.Writer, key string, f File) error {
	content := f.Content
	name := f.Name
	if content == nil {
		file, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("failed to open %s file: %w", key, err)
		}
		defer file.Close()
		content = file
		if name == "" {
			name = filepath.Base(f.Path)
		}
	}

	part, err := writer.CreateFormFile(key, name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to write %s file: %w", key, err)
	}
	return nil
}
