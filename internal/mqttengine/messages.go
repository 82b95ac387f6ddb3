package mqttengine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// Code is a CoAP response code in "class.detail" form.
type Code string

// Response codes used by the engine.
const (
	CodeCreated          Code = "2.01"
	CodeDeleted          Code = "2.02"
	CodeChanged          Code = "2.04"
	CodeContent          Code = "2.05"
	CodeBadRequest       Code = "4.00"
	CodeNotFound         Code = "4.04"
	CodeMethodNotAllowed Code = "4.05"
	CodeInternalError    Code = "5.00"
)

// Success reports whether c is in the 2.xx class.
func (c Code) Success() bool {
	return strings.HasPrefix(string(c), "2.")
}

// Op names a request operation.
type Op string

// Supported operations.
const (
	OpRead          Op = "read"
	OpWrite         Op = "write"
	OpExecute       Op = "execute"
	OpCreate        Op = "create"
	OpDelete        Op = "delete"
	OpObserve       Op = "observe"
	OpCancelObserve Op = "cancel-observe"
	OpDiscover      Op = "discover"
)

// Request is published by a server to {prefix}/{endpoint}/request.
//
// Object is required. Instance and Resource are required by the operations
// that address them; read and discover accept coarser paths.
type Request struct {
	ID       string          `json:"id"`
	Op       Op              `json:"op"`
	Object   *uint16         `json:"object"`
	Instance *uint16         `json:"instance,omitempty"`
	Resource *uint16         `json:"resource,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Payload  string          `json:"payload,omitempty"`
}

// Path renders the addressed path, e.g. "3323/1/5700" or "3323".
func (r Request) Path() string {
	var b strings.Builder
	if r.Object != nil {
		fmt.Fprintf(&b, "%d", *r.Object)
	}
	if r.Instance != nil {
		fmt.Fprintf(&b, "/%d", *r.Instance)
		if r.Resource != nil {
			fmt.Fprintf(&b, "/%d", *r.Resource)
		}
	}
	return b.String()
}

// Response is published to {prefix}/{endpoint}/response/{id}.
type Response struct {
	ID        string         `json:"id"`
	Code      Code           `json:"code"`
	Path      string         `json:"path,omitempty"`
	Value     any            `json:"value,omitempty"`
	Resources map[string]any `json:"resources,omitempty"`
	Links     []string       `json:"links,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notification is published to {prefix}/{endpoint}/notify/{o}/{i}/{r}
// when an observed resource changes.
type Notification struct {
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Registration is the retained message on {prefix}/{endpoint}/registration.
// An empty retained payload on the same topic is a deregistration.
type Registration struct {
	RegistrationID string    `json:"registration_id"`
	Endpoint       string    `json:"endpoint"`
	Lifetime       int       `json:"lifetime"`
	Binding        string    `json:"binding,omitempty"`
	Links          []string  `json:"links"`
	Update         bool      `json:"update,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// EncodeValue converts a value to its JSON wire form.
func EncodeValue(v lwm2m.Value) any {
	switch v.Kind() {
	case lwm2m.KindString:
		return v.Str()
	case lwm2m.KindInteger:
		return v.Int()
	case lwm2m.KindFloat:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "+Inf"
		case math.IsInf(f, -1):
			return "-Inf"
		}
		return f
	case lwm2m.KindBoolean:
		return v.Bool()
	case lwm2m.KindOpaque:
		return base64.StdEncoding.EncodeToString(v.Bytes())
	default:
		return nil
	}
}

// DecodeValue turns a JSON wire value into a candidate for a resource of
// the given kind. Numbers become int64 when integral and float64 otherwise;
// opaque values must be base64 strings. Kind coercion is left to the
// resource.
func DecodeValue(kind lwm2m.Kind, raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, fmt.Errorf("%w: value is required", ErrInvalidRequest)
	}

	if kind == lwm2m.KindOpaque {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: opaque value must be a base64 string", ErrInvalidRequest)
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: opaque value: %w", ErrInvalidRequest, err)
		}
		return data, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: value: %w", ErrInvalidRequest, err)
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %s: %w", ErrInvalidRequest, x, err)
		}
		return f, nil
	case string, bool:
		return x, nil
	default:
		return nil, fmt.Errorf("%w: value must be a scalar, got %T", ErrInvalidRequest, v)
	}
}

// validRequestID rejects IDs that cannot be used as a topic level.
func validRequestID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/+#")
}
