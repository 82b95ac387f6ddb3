package mqttengine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name string
		v    lwm2m.Value
		want any
	}{
		{"string", lwm2m.StringValue("PSI"), "PSI"},
		{"integer", lwm2m.IntValue(-7), int64(-7)},
		{"float", lwm2m.FloatValue(1.25), 1.25},
		{"nan", lwm2m.FloatValue(math.NaN()), "NaN"},
		{"positive infinity", lwm2m.FloatValue(math.Inf(1)), "+Inf"},
		{"negative infinity", lwm2m.FloatValue(math.Inf(-1)), "-Inf"},
		{"boolean", lwm2m.BoolValue(true), true},
		{"opaque", lwm2m.OpaqueValue([]byte("key")), "a2V5"},
		{"undefined", lwm2m.Value{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeValue(tt.v)
			if got != tt.want {
				t.Errorf("EncodeValue() = %#v, want %#v", got, tt.want)
			}
			if _, err := json.Marshal(got); err != nil {
				t.Errorf("encoded value does not marshal: %v", err)
			}
		})
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name    string
		kind    lwm2m.Kind
		raw     string
		want    any
		wantErr bool
	}{
		{"integral number", lwm2m.KindInteger, `42`, int64(42), false},
		{"fractional number", lwm2m.KindFloat, `4.5`, 4.5, false},
		{"exponent number", lwm2m.KindInteger, `1e3`, 1000.0, false},
		{"large integer keeps precision", lwm2m.KindInteger, `9007199254740993`, int64(9007199254740993), false},
		{"string", lwm2m.KindString, `"U"`, "U", false},
		{"bool", lwm2m.KindBoolean, `false`, false, false},
		{"missing", lwm2m.KindString, ``, nil, true},
		{"null", lwm2m.KindString, `null`, nil, true},
		{"array", lwm2m.KindString, `[1]`, nil, true},
		{"object", lwm2m.KindString, `{"a":1}`, nil, true},
		{"opaque not a string", lwm2m.KindOpaque, `12`, nil, true},
		{"opaque bad base64", lwm2m.KindOpaque, `"%%"`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.kind, json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("DecodeValue() error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeValue() = %#v, want %#v", got, tt.want)
			}
		})
	}

	data, err := DecodeValue(lwm2m.KindOpaque, json.RawMessage(`"AAEC"`))
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := data.([]byte); !ok || len(b) != 3 || b[2] != 2 {
		t.Errorf("opaque = %#v", data)
	}
}

func TestRequestPath(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Object: u16(3323), Instance: u16(1), Resource: u16(5700)}, "3323/1/5700"},
		{Request{Object: u16(3323), Instance: u16(1)}, "3323/1"},
		{Request{Object: u16(3323)}, "3323"},
		{Request{Object: u16(3), Resource: u16(0)}, "3"},
		{Request{}, ""},
	}
	for _, tt := range tests {
		if got := tt.req.Path(); got != tt.want {
			t.Errorf("Path() = %q, want %q", got, tt.want)
		}
	}
}

func TestCodeSuccess(t *testing.T) {
	for _, c := range []Code{CodeCreated, CodeDeleted, CodeChanged, CodeContent} {
		if !c.Success() {
			t.Errorf("%s.Success() = false", c)
		}
	}
	for _, c := range []Code{CodeBadRequest, CodeNotFound, CodeMethodNotAllowed, CodeInternalError} {
		if c.Success() {
			t.Errorf("%s.Success() = true", c)
		}
	}
}

func TestValidRequestID(t *testing.T) {
	for id, want := range map[string]bool{
		"req-1": true,
		"":      false,
		"a/b":   false,
		"a+":    false,
		"#":     false,
	} {
		if got := validRequestID(id); got != want {
			t.Errorf("validRequestID(%q) = %v, want %v", id, got, want)
		}
	}
}
