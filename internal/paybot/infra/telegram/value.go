package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// Value is a parameter or reply value exchanged with the Bot API.
// It is one of String, Int, Float, Bool, Null, List, Object or File.
type Value interface {
	isValue()
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	Null   struct{}
	List   []Value
)

// File is an uploaded attachment. Content is read once when the request is sent;
// when it is nil the file at Path is opened instead.
type File struct {
	Name    string
	Path    string
	Content io.Reader
}

// Field is a single key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a mapping that keeps its keys in insertion order.
type Object struct {
	fields []Field
}

func (String) isValue() {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Bool) isValue()   {}
func (Null) isValue()   {}
func (List) isValue()   {}
func (File) isValue()   {}
func (Object) isValue() {}

// NewObject builds an object from the fields in order. Later duplicates replace earlier ones.
func NewObject(fields ...Field) Object {
	var o Object
	for _, f := range fields {
		o = o.With(f.Key, f.Value)
	}
	return o
}

// With returns a copy of o with key set to v.
func (o Object) With(key string, v Value) Object {
	fields := make([]Field, len(o.fields), len(o.fields)+1)
	copy(fields, o.fields)
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = v
			return Object{fields: fields}
		}
	}
	return Object{fields: append(fields, Field{Key: key, Value: v})}
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, f := range o.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns the object's fields in order.
func (o Object) Fields() []Field {
	return append([]Field(nil), o.fields...)
}

func (o Object) Len() int { return len(o.fields) }

// Query runs a gjson path (e.g. "message.chat.id") against the object.
func (o Object) Query(path string) gjson.Result {
	b, err := json.Marshal(o)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(b, path)
}

// MarshalJSON encodes the object keeping its key order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := MarshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue encodes v as JSON. Files are encoded as their name.
func MarshalValue(v Value) ([]byte, error) {
	switch v := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(v))
	case Int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case Float:
		return json.Marshal(float64(v))
	case Bool:
		return strconv.AppendBool(nil, bool(v)), nil
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		return v.MarshalJSON()
	case File:
		return json.Marshal(v.Name)
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// FormatScalar renders a value the way it is sent as a form field or query value.
func FormatScalar(v Value) string {
	switch v := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	case File:
		return v.Name
	case List, Object:
		b, err := MarshalValue(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// Decode parses a JSON document into a Value.
func Decode(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// DecodeObject parses a JSON document that must be an object.
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return Object{}, err
	}
	obj, ok := v.(Object)
	if !ok {
		return Object{}, fmt.Errorf("JSON document is not an object")
	}
	return obj, nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null{}
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.String:
		return String(r.Str)
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return Int(i)
		}
		return Float(r.Num)
	case gjson.JSON:
		if r.IsArray() {
			list := List{}
			r.ForEach(func(_, item gjson.Result) bool {
				list = append(list, fromResult(item))
				return true
			})
			return list
		}
		var obj Object
		r.ForEach(func(key, item gjson.Result) bool {
			obj = obj.With(key.Str, fromResult(item))
			return true
		})
		return obj
	default:
		return Null{}
	}
}

// Params are the parameters of a Bot API call.
type Params map[string]Value

// Object returns the params as an object with keys sorted.
func (p Params) Object() Object {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: p[k]})
	}
	return Object{fields: fields}
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
