// Package decoder turns raw sensor payloads into typed measurement drafts.
package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

// ErrMalformedPayload is the kind shared by every Rejection.
var ErrMalformedPayload = errors.New("decoder: malformed payload")

// Reason identifies why a payload was rejected.
type Reason string

const (
	ReasonInvalidUTF8     Reason = "invalid_utf8"
	ReasonEmpty           Reason = "empty_payload"
	ReasonInvalidJSON     Reason = "invalid_json"
	ReasonNotAnObject     Reason = "not_an_object"
	ReasonMissingDeviceID Reason = "missing_device_id"
	ReasonInvalidDeviceID Reason = "invalid_device_id"
)

// Rejection reports a payload that cannot become a measurement.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("malformed payload: %s", r.Reason)
	}
	return fmt.Sprintf("malformed payload: %s: %s", r.Reason, r.Detail)
}

func (r *Rejection) Unwrap() error { return ErrMalformedPayload }

// Draft is a validated message that still lacks the persistence time.
type Draft struct {
	Topic    string
	DeviceID string
	Readings models.Readings
	// Dropped lists numeric fields that were present but unusable.
	Dropped []string
}

// Measurement converts the draft into an unsaved measurement.
func (d *Draft) Measurement() *models.Measurement {
	return &models.Measurement{DeviceID: d.DeviceID, Readings: d.Readings}
}

type field struct {
	name string
	dest func(*models.Readings) **float64
}

var fields = []field{
	{"air_temp", func(r *models.Readings) **float64 { return &r.AirTemp }},
	{"air_hum", func(r *models.Readings) **float64 { return &r.AirHum }},
	{"air_press", func(r *models.Readings) **float64 { return &r.AirPress }},
	{"gas", func(r *models.Readings) **float64 { return &r.Gas }},
	{"water_temp", func(r *models.Readings) **float64 { return &r.WaterTemp }},
	{"soil", func(r *models.Readings) **float64 { return &r.Soil }},
	{"light", func(r *models.Readings) **float64 { return &r.Light }},
}

// Decode validates payload and extracts the device id and sensor values.
// Any failure is a *Rejection. Individual sensor fields that are not numbers
// are left out of the draft and named in Dropped.
func Decode(topic string, payload []byte) (*Draft, error) {
	if !utf8.Valid(payload) {
		return nil, &Rejection{Reason: ReasonInvalidUTF8}
	}
	body := bytes.TrimSpace(payload)
	if len(body) == 0 {
		return nil, &Rejection{Reason: ReasonEmpty}
	}

	obj, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	deviceID, err := extractDeviceID(obj)
	if err != nil {
		return nil, err
	}

	draft := &Draft{Topic: topic, DeviceID: deviceID}
	for _, f := range fields {
		raw, ok := obj[f.name]
		if !ok || raw == nil {
			continue
		}
		v, ok := number(raw)
		if !ok {
			draft.Dropped = append(draft.Dropped, f.name)
			continue
		}
		*f.dest(&draft.Readings) = &v
	}
	return draft, nil
}

func parseObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Rejection{Reason: ReasonInvalidJSON, Detail: err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &Rejection{Reason: ReasonInvalidJSON, Detail: "trailing data after JSON value"}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Rejection{Reason: ReasonNotAnObject, Detail: fmt.Sprintf("got %s", kind(v))}
	}
	return obj, nil
}

func extractDeviceID(obj map[string]any) (string, error) {
	raw, ok := obj["device_id"]
	if !ok || raw == nil {
		return "", &Rejection{Reason: ReasonMissingDeviceID}
	}

	switch v := raw.(type) {
	case string:
		id := strings.TrimSpace(v)
		if id == "" {
			return "", &Rejection{Reason: ReasonMissingDeviceID, Detail: "device_id is empty"}
		}
		return id, nil
	case json.Number:
		return numericDeviceID(v)
	default:
		return "", &Rejection{Reason: ReasonInvalidDeviceID, Detail: fmt.Sprintf("device_id is %s", kind(raw))}
	}
}

// maxNumericIDDigits bounds ids written as JSON numbers such as 1e400.
const maxNumericIDDigits = 40

// numericDeviceID formats a numeric device_id without losing digits: integral
// values (42, 42.0, 4.2e1) become their exact decimal integer, fractions keep
// the shortest form when it is exact and the raw text otherwise.
func numericDeviceID(v json.Number) (string, error) {
	if n, err := v.Int64(); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	r, ok := new(big.Rat).SetString(v.String())
	if !ok {
		return "", &Rejection{Reason: ReasonInvalidDeviceID, Detail: v.String()}
	}
	if r.IsInt() {
		id := r.Num().String()
		if len(id) > maxNumericIDDigits {
			return "", &Rejection{Reason: ReasonInvalidDeviceID, Detail: v.String()}
		}
		return id, nil
	}
	if f, exact := r.Float64(); exact && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return v.String(), nil
}

// number accepts JSON numbers and numeric strings with finite values.
func number(raw any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func kind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
