package telegram

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/tidwall/sjson"
)

// Transport error codes reported in the error_code field of synthetic replies.
// They follow curl's numbering so existing log tooling keeps working.
const (
	CodeTransportFailure = 2
	CodeCouldNotResolve  = 6
	CodeCouldNotConnect  = 7
	CodeTimeout          = 28
	CodeTLSFailure       = 35
	CodeReceiveFailure   = 56
)

// Reply is a decoded Bot API reply. Transport failures are returned with the
// same shape as API failures: ok=false plus error_code and description.
type Reply struct {
	Object
}

// OK reports the reply's ok field.
func (r Reply) OK() bool {
	v, ok := r.Get("ok")
	if !ok {
		return false
	}
	b, isBool := v.(Bool)
	return isBool && bool(b)
}

func (r Reply) ErrorCode() int64 {
	return r.Query("error_code").Int()
}

func (r Reply) Description() string {
	return r.Query("description").String()
}

// Result returns the reply's result field, or Null when absent.
func (r Reply) Result() Value {
	if v, ok := r.Get("result"); ok {
		return v
	}
	return Null{}
}

// failureReply synthesizes an ok=false reply.
func failureReply(code int, description string) Reply {
	doc := []byte(`{}`)
	doc, _ = sjson.SetBytes(doc, "ok", false)
	doc, _ = sjson.SetBytes(doc, "error_code", code)
	doc, _ = sjson.SetBytes(doc, "description", description)

	obj, err := DecodeObject(doc)
	if err != nil {
		obj = NewObject(
			Field{Key: "ok", Value: Bool(false)},
			Field{Key: "error_code", Value: Int(code)},
			Field{Key: "description", Value: String(description)},
		)
	}
	return Reply{Object: obj}
}

// transportErrorCode classifies an http.Client error.
func transportErrorCode(err error) int {
	var (
		dnsErr    *net.DNSError
		opErr     *net.OpError
		netErr    net.Error
		certErr   *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &dnsErr):
		return CodeCouldNotResolve
	case errors.As(err, &certErr), errors.As(err, &recordErr):
		return CodeTLSFailure
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return CodeCouldNotConnect
	case errors.As(err, &opErr) && opErr.Op == "read":
		return CodeReceiveFailure
	default:
		return CodeTransportFailure
	}
}
