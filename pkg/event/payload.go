package event

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Payload is the dynamic body of an event. Keys are strings, values must be
// JSON-serialisable. Template substitution only sees the top level.
type Payload map[string]interface{}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Params flattens the payload into substitution parameters. Nested values
// are rendered as JSON.
func (p Payload) Params() map[string]string {
	params := make(map[string]string, len(p))
	for k, v := range p {
		params[k] = stringify(v)
	}
	return params
}

// String returns the string form of key, or "" when absent.
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return stringify(v)
}

// UUID parses key as a UUID.
func (p Payload) UUID(key string) (uuid.UUID, bool) {
	s := p.String(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UUIDs collects every UUID found under key, accepting a single value or a list.
func (p Payload) UUIDs(key string) []uuid.UUID {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	var ids []uuid.UUID
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if id, err := uuid.Parse(stringify(item)); err == nil {
				ids = append(ids, id)
			}
		}
	case []string:
		for _, item := range v {
			if id, err := uuid.Parse(item); err == nil {
				ids = append(ids, id)
			}
		}
	default:
		if id, ok := p.UUID(key); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// nullParam is how an explicit null in the payload is substituted.
const nullParam = "None"

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return nullParam
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; keep integers out of exponent form.
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
