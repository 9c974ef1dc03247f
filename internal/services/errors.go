package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spinnelein/familybook/internal/shared"
)

// ProviderError is a non-2xx response from the Picker API.
//
// It unwraps to the operation's sentinel (for example [shared.ErrPollFailed]) and, when the
// response identifies one, to a more specific cause such as [shared.ErrInsufficientScope].
type ProviderError struct {
	Op         string
	StatusCode int
	Status     string // google.rpc status code, e.g. FAILED_PRECONDITION
	Message    string

	sentinel error
	cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s: status %d", e.sentinel, e.Op, e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.sentinel, e.cause}
	}
	return []error{e.sentinel}
}

// googleErrorBody is the standard Google API error envelope.
type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// newProviderError decodes a Google error envelope from body when possible.
func newProviderError(op string, sentinel error, resp *http.Response, body []byte) *ProviderError {
	e := &ProviderError{Op: op, StatusCode: resp.StatusCode, sentinel: sentinel}

	var env googleErrorBody
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Status != "" {
		e.Status = env.Error.Status
		e.Message = env.Error.Message
	} else {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
	}

	if resp.StatusCode == http.StatusForbidden && isScopeError(e, resp.Header.Get("WWW-Authenticate")) {
		e.cause = shared.ErrInsufficientScope
	}
	return e
}

func isScopeError(e *ProviderError, challenge string) bool {
	if strings.Contains(challenge, "insufficient_scope") {
		return true
	}
	msg := strings.ToLower(e.Message)
	return e.Status == "PERMISSION_DENIED" && strings.Contains(msg, "scope")
}

// notReady reports whether the provider said the session's selection is not finished.
func (e *ProviderError) notReady() bool {
	if e.Status == "FAILED_PRECONDITION" {
		return true
	}
	return e.StatusCode == http.StatusBadRequest && strings.Contains(e.Message, "FAILED_PRECONDITION")
}
