package esgate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampField is set on every JSON object payload before it is written
const TimestampField = "timestamp"

// Normalize validates a JSON payload and, if it is an object, sets its
// timestamp field to now (ISO-8601, UTC) overwriting any existing value.
// The value is written back as compact JSON keeping its key order; a new
// timestamp field goes last. Payloads other than objects are only compacted
func Normalize(payload []byte, now time.Time) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))

	var raw json.RawMessage

	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid json payload: %w", err)
	}

	if dec.More() {
		return nil, fmt.Errorf("invalid json payload: unexpected data after top-level value")
	}

	var buf bytes.Buffer

	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("invalid json payload: %w", err)
	}

	if buf.Bytes()[0] != '{' {
		return buf.Bytes(), nil
	}

	return stamp(buf.Bytes(), now.UTC().Format(time.RFC3339Nano))
}

type field struct {
	key   string
	value json.RawMessage
}

// stamp sets the timestamp field of a compact JSON object.
// A repeated key keeps its first position and its last value
func stamp(obj []byte, ts string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []field

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		var value json.RawMessage

		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		fields = set(fields, tok.(string), value)
	}

	tsValue, err := encodeString(ts)
	if err != nil {
		return nil, err
	}

	fields = set(fields, TimestampField, tsValue)

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := encodeString(f.key)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func set(fields []field, key string, value json.RawMessage) []field {
	for i := range fields {
		if fields[i].key == key {
			fields[i].value = value

			return fields
		}
	}

	return append(fields, field{key: key, value: value})
}

func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
