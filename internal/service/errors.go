package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/iurnickita/washportal/internal/gateway"
)

// ValidationError - ответ 400/422 с ошибками по полям
type ValidationError struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("validation failed (%d)", e.StatusCode)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func checkStatus(resp *gateway.Response) error {
	switch {
	case resp.OK():
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return parseValidationError(resp)
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// parseValidationError разбирает тело ошибки:
// {"field": ["msg"]}, {"non_field_errors": [...]}, {"detail": "msg"}
// или {"error": "msg", "details": {"field": ["msg"]}}
func parseValidationError(resp *gateway.Response) error {
	verr := &ValidationError{
		StatusCode: resp.StatusCode,
		Fields:     make(map[string][]string),
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		verr.Detail = strings.TrimSpace(string(resp.Body))
		return verr
	}

	var details []string
	for key, value := range raw {
		switch key {
		case "detail", "error":
			details = append(details, messages(value)...)
		case "details":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(value, &nested); err != nil {
				details = append(details, messages(value)...)
				continue
			}
			for field, v := range nested {
				verr.Fields[field] = append(verr.Fields[field], messages(v)...)
			}
		default:
			verr.Fields[key] = append(verr.Fields[key], messages(value)...)
		}
	}
	sort.Strings(details)
	verr.Detail = strings.Join(details, " ")
	return verr
}

// messages: ["a", "b"] или "a"
func messages(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}
	var message string
	if err := json.Unmarshal(value, &message); err != nil {
		message = string(value)
	}
	return []string{message}
}
