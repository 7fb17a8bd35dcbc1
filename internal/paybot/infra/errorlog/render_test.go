package errorlog_test

import (
	"strings"
	"testing"

	"github.com/izzddalfk/telepay/internal/paybot/infra/errorlog"
	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTree_NestedObject(t *testing.T) {
	obj, err := telegram.DecodeObject([]byte(`{"a":{"b":1,"c":true}}`))
	require.NoError(t, err)

	out := errorlog.RenderTree(obj)
	assert.Equal(t, "[ref]\nref.a.b= 1\nref.a.c= true\n", out)
}

func TestRenderTree_Invoice(t *testing.T) {
	obj := telegram.NewObject(
		telegram.Field{Key: "title", Value: telegram.String("Item")},
		telegram.Field{Key: "is_flexible", Value: telegram.Bool(false)},
		telegram.Field{Key: "prices", Value: telegram.List{
			telegram.NewObject(
				telegram.Field{Key: "label", Value: telegram.String("RUB")},
				telegram.Field{Key: "amount", Value: telegram.Int(10000)},
			),
		}},
		telegram.Field{Key: "photo", Value: telegram.File{Name: "item.png"}},
		telegram.Field{Key: "note", Value: telegram.Null{}},
		telegram.Field{Key: "ratio", Value: telegram.Float(0.5)},
	)

	lines := strings.Split(strings.TrimSuffix(errorlog.RenderTree(obj), "\n"), "\n")
	assert.Equal(t, []string{
		"[ref]",
		"ref.title= Item",
		"ref.is_flexible= false",
		"ref.prices.0.label= RUB",
		"ref.prices.0.amount= 10000",
		"ref.photo= File",
		"ref.note= ",
		"ref.ratio= 0.5",
	}, lines)
}

func TestRenderTree_FileInsideObject(t *testing.T) {
	obj := telegram.NewObject(telegram.Field{
		Key: "media",
		Value: telegram.NewObject(telegram.Field{
			Key: "document", Value: telegram.File{Path: "/tmp/report.pdf"},
		}),
	})

	assert.Contains(t, errorlog.RenderTree(obj), "ref.media.document= File\n")
}

func TestRenderTree_Empty(t *testing.T) {
	assert.Equal(t, "[ref]\n", errorlog.RenderTree(telegram.Object{}))
}
