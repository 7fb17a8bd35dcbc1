package errorlog

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
)

const ref = "ref"

// RenderTree flattens obj into "ref.<path>= <value>" lines under a "[ref]" header.
func RenderTree(obj telegram.Object) string {
	var b strings.Builder
	b.WriteString("[" + ref + "]\n")
	renderFields(&b, "", obj.Fields())
	return b.String()
}

func renderFields(b *strings.Builder, path string, fields []telegram.Field) {
	for _, f := range fields {
		renderValue(b, joinPath(path, f.Key), f.Value)
	}
}

func renderValue(b *strings.Builder, path string, v telegram.Value) {
	switch v := v.(type) {
	case telegram.File:
		fmt.Fprintf(b, "%s.%s= File\n", ref, path)
	case telegram.Object:
		renderFields(b, path, v.Fields())
	case telegram.List:
		for i, item := range v {
			renderValue(b, joinPath(path, strconv.Itoa(i)), item)
		}
	case telegram.String, telegram.Int, telegram.Float, telegram.Bool, telegram.Null, nil:
		fmt.Fprintf(b, "%s.%s= %s\n", ref, path, telegram.FormatScalar(v))
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// renderResponse lists the reply's top level fields. Loosely false values
// are printed as False.
func renderResponse(reply telegram.Reply) string {
	var b strings.Builder
	for _, f := range reply.Fields() {
		if isFalsy(f.Value) {
			fmt.Fprintf(&b, "%s:\t\t\tFalse\n", f.Key)
			continue
		}
		fmt.Fprintf(&b, "%s:\t\t%s\n", f.Key, telegram.FormatScalar(f.Value))
	}
	return b.String()
}

func isFalsy(v telegram.Value) bool {
	switch v := v.(type) {
	case nil, telegram.Null:
		return true
	case telegram.Bool:
		return !bool(v)
	case telegram.Int:
		return v == 0
	case telegram.Float:
		return v == 0
	case telegram.String:
		return v == "" || v == "0"
	case telegram.List:
		return len(v) == 0
	case telegram.Object:
		return v.Len() == 0
	case telegram.File:
		return false
	default:
		return false
	}
}

// renderTrace formats the caller's stack, innermost frame first.
func renderTrace(skip int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var (
		b strings.Builder
		i int
	)
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&b, "#%d %s(%d): %s()\n", i, frame.File, frame.Line, frame.Function)
		i++
		if !more {
			break
		}
	}
	fmt.Fprintf(&b, "#%d {main}", i)
	return b.String()
}
