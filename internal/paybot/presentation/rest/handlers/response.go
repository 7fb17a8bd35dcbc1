package handlers

import "time"

// WebhookResponse is the body returned to Telegram for every delivered update.
// Telegram only looks at the status code.
type WebhookResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Outcome is the subset of a handled update echoed back in the response
type Outcome interface {
	ActionName() string
}

func NewSuccessResponse(requestID string, data any) *WebhookResponse {
	resp := &WebhookResponse{
		Success:   true,
		RequestID: requestID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if o, ok := data.(Outcome); ok {
		resp.Action = o.ActionName()
	}
	return resp
}

func NewErrorResponse(requestID, message string) *WebhookResponse {
	return &WebhookResponse{
		Success:   false,
		RequestID: requestID,
		Error:     message,
		Timestamp: time.Now().Unix(),
	}
}
