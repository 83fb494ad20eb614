// Package render turns peeked messages into deterministic, human-readable
// output: an ordered JSON property object and a best-effort body string.
package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/yazzzuk/azure-service-bus-reader/internal/servicebus"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// BinaryDecoder decodes a non-UTF-8 body into structured fields. The hint
// is the message subject, when present.
type BinaryDecoder interface {
	Decode(data []byte, hint string) (map[string]any, error)
}

// Renderer renders message properties and bodies. The zero value is usable;
// Binary is optional.
type Renderer struct {
	Binary BinaryDecoder
}

// Message is one rendered message, ready to print or browse.
type Message struct {
	SubQueue string // ACTIVE or DLQ
	Index    int    // 1-based position within its peek call
	Props    string // pretty-printed JSON property object
	Body     string
	Raw      *servicebus.Message
}

// Properties renders the fixed, ordered property set of a message as
// 2-space-indented JSON. Fields whose converted value is null are dropped;
// the remaining fields keep the fixed order.
func (r Renderer) Properties(m *servicebus.Message) string {
	fields := []member{
		{"sequence_number", m.SequenceNumber},
		{"enqueued_time_utc", m.EnqueuedTime},
		{"expires_at_utc", m.ExpiresAt},
		{"locked_until_utc", m.LockedUntil},
		{"delivery_count", m.DeliveryCount},
		{"content_type", m.ContentType},
		{"subject/label", m.Subject},
		{"message_id", m.MessageID},
		{"correlation_id", m.CorrelationID},
		{"to", m.To},
		{"reply_to", m.ReplyTo},
		{"session_id", m.SessionID},
		{"partition_key", m.PartitionKey},
		{"dead_letter_reason", m.DeadLetterReason},
		{"dead_letter_error_description", m.DeadLetterErrorDescription},
	}

	var obj object
	for _, f := range fields {
		v := jsonable(f.v)
		if v == nil {
			continue
		}
		obj = append(obj, member{f.k, v})
	}
	if m.ApplicationProperties != nil {
		obj = append(obj, member{"application_properties", jsonable(m.ApplicationProperties)})
	}

	out, err := marshalIndent(obj)
	if err != nil {
		return fmt.Sprintf("<error rendering properties: %v>", err)
	}
	return out
}

// Body renders a message body. UTF-8 JSON is pretty-printed, other UTF-8
// text is returned verbatim, binary falls back to the optional decoder and
// then to base64. A body read failure becomes an inline placeholder so the
// peek loop never aborts on one bad message.
func (r Renderer) Body(m *servicebus.Message) string {
	b, err := m.Body()
	if err != nil {
		return fmt.Sprintf("<error reading body: %v>", err)
	}

	if utf8.Valid(b) {
		s := string(b)
		var v any
		if json.Unmarshal(b, &v) == nil {
			if out, err := marshalIndent(jsonable(v)); err == nil {
				return out
			}
		}
		return s
	}

	if r.Binary != nil {
		hint := ""
		if m.Subject != nil {
			hint = *m.Subject
		}
		if decoded, err := r.Binary.Decode(b, hint); err == nil {
			if out, err := marshalIndent(jsonable(decoded)); err == nil {
				return out
			}
		}
	}

	return "base64:" + base64.StdEncoding.EncodeToString(b)
}

// Render produces a complete rendered message.
func (r Renderer) Render(m *servicebus.Message, subQueue servicebus.SubQueue, index int) Message {
	return Message{
		SubQueue: subQueue.Tag(),
		Index:    index,
		Props:    r.Properties(m),
		Body:     r.Body(m),
		Raw:      m,
	}
}

// member is one key/value pair of an object with significant order.
type member struct {
	k string
	v any
}

// object marshals as a JSON object whose members keep their order.
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalCompact(m.k)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshalCompact(m.v)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalCompact is json.Marshal without HTML escaping, so message text
// like "<" and "&" prints as-is.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalIndent(v any) (string, error) {
	compact, err := marshalCompact(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// jsonable recursively converts a value into a JSON-representable form:
// scalars pass through, timestamps get the fixed UTC layout, byte slices
// decode to text or base64, sequences and mappings recurse, and anything
// else stringifies. It never fails.
func jsonable(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return formatTime(*x)
	case time.Duration:
		return x.String()
	case []byte:
		return bytesToText(x)
	case map[string]any:
		if x == nil {
			return nil
		}
		return sortedObject(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonable(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return jsonable(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonable(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		m := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			m[stringifyKey(k.Interface())] = rv.MapIndex(k).Interface()
		}
		return sortedObject(m)
	}

	// UUIDs, AMQP annotations, whatever else the broker hands back.
	return fmt.Sprint(v)
}

// sortedObject converts a map into an order-preserving object. Go maps are
// unordered, so keys are sorted to keep output deterministic.
func sortedObject(m map[string]any) object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(object, 0, len(keys))
	for _, k := range keys {
		obj = append(obj, member{k, jsonable(m[k])})
	}
	return obj
}

func stringifyKey(k any) string {
	switch x := k.(type) {
	case string:
		return x
	case []byte:
		return bytesToText(x)
	default:
		return fmt.Sprint(x)
	}
}

// bytesToText decodes bytes as UTF-8 when possible, else base64 with a
// marker prefix.
func bytesToText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return "base64:" + base64.StdEncoding.EncodeToString(b)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
