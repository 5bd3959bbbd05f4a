package detection

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a detection request did not produce a verdict.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindEncoding
	KindDecode
	KindProcessing
)

// Public messages. Decode and processing failures share one generic message so
// decoder internals never reach the client.
const (
	MsgInvalidAPIKey       = "Invalid API key"
	MsgInvalidJSON         = "Invalid JSON"
	MsgUnsupportedLanguage = "Unsupported language"
	MsgOnlyMP3             = "Only mp3 supported"
	MsgAudioMissing        = "Audio missing"
	MsgInvalidBase64       = "Invalid Base64 audio"
	MsgProcessingFailed    = "Audio processing failed"
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindEncoding:
		return "encoding"
	case KindDecode:
		return "decode"
	case KindProcessing:
		return "processing"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// HTTPStatus maps the kind onto the status code reported to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation, KindEncoding:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a request-terminating failure. Message is safe to show to clients;
// Err carries the internal cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// AuthError returns the error reported for a rejected API key.
func AuthError() *Error {
	return newError(KindAuth, MsgInvalidAPIKey, nil)
}

// AsError extracts the *Error from err. Errors that did not originate in this
// package are reported as generic processing failures.
func AsError(err error) *Error {
	var detErr *Error
	if errors.As(err, &detErr) {
		return detErr
	}
	return newError(KindProcessing, MsgProcessingFailed, err)
}
