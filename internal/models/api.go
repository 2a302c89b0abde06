package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusSuccess is the envelope status of an accepted request.
const StatusSuccess = "SUCCESS"

// ErrEmptyData is returned when a response envelope carries no payload.
var ErrEmptyData = errors.New("response has no data")

// Envelope is the body shape every backend response conforms to.
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
}

// OK reports whether the server accepted the request. A missing status
// counts as accepted.
func (e *Envelope) OK() bool {
	return e.Status == "" || strings.EqualFold(e.Status, StatusSuccess)
}

// Err converts a rejected envelope into an APIError, or returns nil.
func (e *Envelope) Err(statusCode int) error {
	if e.OK() {
		return nil
	}
	return &APIError{
		StatusCode: statusCode,
		Status:     e.Status,
		Message:    e.Message,
	}
}

// Decode unmarshals the data field into v.
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return ErrEmptyData
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Rejection returns an APIError unless the server explicitly reported
// success. Handlers use it where a missing status must not count as success.
func (e *Envelope) Rejection() error {
	if strings.EqualFold(e.Status, StatusSuccess) {
		return nil
	}
	return &APIError{Status: e.Status, Message: e.Message}
}
