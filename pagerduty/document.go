package pagerduty

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Node is a value in a decoded response document. The concrete types are
// Object, Array, String, Number, Bool, Null and Time.
type Node interface {
	isNode()
}

// Object is a JSON object.
type Object map[string]Node

// Array is a JSON array.
type Array []Node

// String is a JSON string.
type String string

// Number is a JSON number, kept as its literal text so integers survive untouched.
type Number json.Number

// Bool is a JSON boolean.
type Bool bool

// Null is the JSON null value.
type Null struct{}

// Time is a timestamp field converted from its wire string.
type Time struct {
	time.Time
}

func (Object) isNode() {}
func (Array) isNode()  {}
func (String) isNode() {}
func (Number) isNode() {}
func (Bool) isNode()   {}
func (Null) isNode()   {}
func (Time) isNode()   {}

// MarshalJSON writes the number literal unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

// MarshalJSON writes null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Int64 returns the number as an int64.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Get returns the node stored under key.
func (o Object) Get(key string) (Node, bool) {
	n, ok := o[key]
	return n, ok
}

// GetObject returns the object stored under key.
func (o Object) GetObject(key string) (Object, bool) {
	v, ok := o[key].(Object)
	return v, ok
}

// GetArray returns the array stored under key.
func (o Object) GetArray(key string) (Array, bool) {
	v, ok := o[key].(Array)
	return v, ok
}

// GetString returns the string stored under key.
func (o Object) GetString(key string) (string, bool) {
	v, ok := o[key].(String)
	return string(v), ok
}

// GetBool returns the boolean stored under key.
func (o Object) GetBool(key string) (bool, bool) {
	v, ok := o[key].(Bool)
	return bool(v), ok
}

// GetTime returns the hydrated timestamp stored under key.
func (o Object) GetTime(key string) (time.Time, bool) {
	v, ok := o[key].(Time)
	return v.Time, ok
}

// ParseDocument decodes JSON text into a Node tree.
func ParseDocument(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}

	return FromValue(raw), nil
}

// FromValue converts generic Go values, as produced by encoding/json, into a
// Node tree. Nodes are returned as is.
func FromValue(v any) Node {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Node:
		return t
	case map[string]any:
		obj := make(Object, len(t))
		for k, inner := range t {
			obj[k] = FromValue(inner)
		}
		return obj
	case []any:
		arr := make(Array, len(t))
		for i, inner := range t {
			arr[i] = FromValue(inner)
		}
		return arr
	case string:
		return String(t)
	case json.Number:
		return Number(t)
	case bool:
		return Bool(t)
	case time.Time:
		return Time{t}
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return Number(strconv.FormatFloat(float64(t), 'f', -1, 32))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(strconv.FormatUint(rv.Uint(), 10))
	}
	return String(fmt.Sprint(v))
}

// Interface converts a Node tree back into plain Go values. Numbers become
// int64 when they fit, float64 when fractional, and json.Number otherwise;
// Time becomes time.Time.
func Interface(n Node) any {
	switch t := n.(type) {
	case Object:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = Interface(inner)
		}
		return out
	case Array:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = Interface(inner)
		}
		return out
	case String:
		return string(t)
	case Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		// integers beyond int64 keep their literal rather than rounding
		if !strings.ContainsAny(string(t), ".eE") {
			return json.Number(t)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return json.Number(t)
	case Bool:
		return bool(t)
	case Time:
		return t.Time
	default:
		return nil
	}
}

// kindName names the variant of n for error messages.
func kindName(n Node) string {
	switch n.(type) {
	case Object:
		return "object"
	case Array:
		return "array"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Time:
		return "time"
	case Null, nil:
		return "null"
	default:
		return fmt.Sprintf("%T", n)
	}
}
