package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the decoded result of an API call: the HTTP status and the JSON body.
type Response struct {
	Status  int
	Payload json.RawMessage
	Header  http.Header
}

// OK reports whether Status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the payload into target.
func (r *Response) Decode(target any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(r.Payload, target); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// PayloadMap decodes the payload as a JSON object. Non-object payloads yield
// a map with the raw value under "value".
func (r *Response) PayloadMap() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(r.Payload, &m); err == nil && m != nil {
		return m
	}
	var v any
	_ = json.Unmarshal(r.Payload, &v)
	return map[string]any{"value": v}
}
