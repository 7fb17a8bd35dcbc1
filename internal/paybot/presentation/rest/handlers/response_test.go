package handlers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/presentation/rest/handlers"
)

func TestNewSuccessResponse(t *testing.T) {
	resp := handlers.NewSuccessResponse("req_1", &core.Outcome{UpdateID: 5, Action: core.ActionCheckoutAnswered})
	assert.True(t, resp.Success)
	assert.Equal(t, "req_1", resp.RequestID)
	assert.Equal(t, "checkout_answered", resp.Action)
	assert.NotZero(t, resp.Timestamp)

	plain := handlers.NewSuccessResponse("", "It's running!")
	assert.Empty(t, plain.Action)
	assert.Equal(t, "It's running!", plain.Data)
}

func TestNewErrorResponse(t *testing.T) {
	resp := handlers.NewErrorResponse("req_2", "invalid webhook secret token")
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid webhook secret token", resp.Error)
	assert.Nil(t, resp.Data)
}
