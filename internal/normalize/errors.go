// Package normalize maps HTTP outcomes onto the core error taxonomy.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/petal-labs/oai/core"
)

// errorEnvelope is the vendor error body:
// {"error":{"message":"...","type":"...","code":"..."}}
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(status int) core.ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return core.KindValidation
	case http.StatusUnauthorized:
		return core.KindAuthentication
	case http.StatusTooManyRequests:
		return core.KindRateLimit
	default:
		return core.KindAPI
	}
}

// FromResponse builds the error for a non-2xx response. The vendor's
// error.message is used when present; otherwise a transport-level message
// naming the status code.
func FromResponse(status int, body []byte, requestID string) *core.Error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	e := &core.Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		RequestID:  requestID,
		Data:       body,
	}
	if env.Error != nil {
		e.Message = env.Error.Message
		e.Code = codeString(env.Error.Code)
		if e.Code == "" {
			e.Code = env.Error.Type
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status code %d", status)
	}
	return e
}

func codeString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprint(c)
	}
}

// Network wraps a failure where no response was received.
func Network(err error) *core.Error {
	return &core.Error{
		Kind:    core.KindNetwork,
		Message: err.Error(),
		Err:     err,
	}
}

// Decode wraps a failure to decode a 2xx response body.
func Decode(err error, status int, requestID string) *core.Error {
	return &core.Error{
		Kind:       core.KindGeneric,
		Code:       "decode_error",
		Message:    err.Error(),
		StatusCode: status,
		RequestID:  requestID,
		Err:        err,
	}
}

// Encode wraps a failure to build a request body.
func Encode(err error) *core.Error {
	return &core.Error{
		Kind:    core.KindGeneric,
		Code:    "encode_error",
		Message: err.Error(),
		Err:     err,
	}
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
