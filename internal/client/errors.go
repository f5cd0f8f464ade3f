package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors matched with errors.Is against an *APIError.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a failed backend call. Status is zero for transport errors.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrUnauthorized and ErrNotFound by status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// messageFromPayload extracts a user-facing message from a backend error
// body: the first non_field_errors entry, else every field error flattened
// in payload order and joined with ", ", else fallback.
func messageFromPayload(data []byte, fallback string) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fallback
	}

	var nonField []string
	var flat []string

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fallback
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fallback
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fallback
		}
		msgs := flatten(raw)
		if key == "non_field_errors" {
			nonField = msgs
		}
		flat = append(flat, msgs...)
	}

	if len(nonField) > 0 {
		return nonField[0]
	}
	if len(flat) > 0 {
		return strings.Join(flat, ", ")
	}
	return fallback
}

// flatten collects the strings in a field error value, which is a string or
// an arbitrarily nested array of strings.
func flatten(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, flatten(item)...)
		}
		return out
	}

	return nil
}
