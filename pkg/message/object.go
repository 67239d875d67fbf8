package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object that remembers the order its keys appeared in
// the document. encoding/json decodes objects into maps and loses that
// order, but downstream column schemas are built in first-seen order, so
// payload values are decoded through DecodeOrdered instead.
type Object struct {
	keys   []string
	fields map[string]any
}

func NewObject() *Object {
	return &Object{fields: make(map[string]any)}
}

// Set stores a value under key, registering the key on first use.
// Setting an existing key overwrites the value and keeps its position.
func (o *Object) Set(key string, value any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the key names in document order. The slice is shared;
// callers must not mutate it.
func (o *Object) Keys() []string {
	return o.keys
}

func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON writes the fields in document order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(o.fields[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeOrdered reads one JSON value from dec. Objects become *Object,
// arrays become []any, and scalars pass through as the decoder produces
// them (string, bool, nil, and json.Number when UseNumber is set).
func DecodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeValue(dec, tok)
}

func decodeValue(dec *json.Decoder, tok json.Token) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key token %v is not a string", keyTok)
			}
			value, err := DecodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		// Consume the closing brace.
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			value, err := DecodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
