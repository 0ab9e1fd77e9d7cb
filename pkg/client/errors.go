package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dukex/followup/pkg/services"
)

// FallbackMessage is shown when neither the server nor the transport say what went wrong.
const FallbackMessage = "Something went wrong. Please try again."

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("resource not found")

// messageKeys are read from error bodies in order; the first non-empty one wins.
var messageKeys = []string{"message", "detail", "error", "title"}

// TransportError is a failed API call. StatusCode is 0 when no response arrived.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message extracts the best available message: the server message or detail, then the
// server error or title, then the transport error text, then FallbackMessage.
func Message(body []byte, cause error) string {
	var payload map[string]any

	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		for _, key := range messageKeys {
			if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
				return value
			}
		}
	}

	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		return cause.Error()
	}

	return FallbackMessage
}

func requestFailed(op string, err error) *TransportError {
	return &TransportError{
		Op:      op,
		Message: Message(nil, err),
		Err:     fmt.Errorf("%w: %w", services.ErrTransport, err),
	}
}

func responseFailed(op string, statusCode int, body []byte) *TransportError {
	class := services.ErrTransport

	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		class = services.ErrValidation
	case http.StatusNotFound:
		class = ErrNotFound
	case http.StatusConflict:
		class = services.ErrPrecondition
	}

	return &TransportError{
		Op:         op,
		StatusCode: statusCode,
		Message:    Message(body, fmt.Errorf("request failed with status %d", statusCode)),
		Err:        class,
	}
}
