package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// StatusError describes a non-2xx response from a downstream service.
type StatusError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned status %d (%s): %s", e.Service, e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// Temporary reports whether the failure is likely to clear on its own.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// downstreamError mirrors the {"error":{"code","message"}} envelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// returns a *StatusError. Structured error envelopes keep their code and
// message; otherwise a trimmed prefix of the raw body is used.
func ParseResponseError(resp *http.Response, service string) error {
	defer drain(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &StatusError{Service: service, StatusCode: resp.StatusCode, Message: "unreadable body: " + err.Error()}
	}

	se := &StatusError{Service: service, StatusCode: resp.StatusCode}
	var env downstreamError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		se.Code = env.Error.Code
		se.Message = env.Error.Message
		return se
	}

	se.Message = strings.TrimSpace(string(body))
	return se
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
