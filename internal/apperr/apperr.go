package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jay-neo/cinebase/internal/logger"
)

// Kind classifies an error for propagation and status mapping.
type Kind string

const (
	KindSigning         Kind = "SigningError"
	KindInvalidToken    Kind = "InvalidTokenError"
	KindProviderAuth    Kind = "ProviderAuthenticationError"
	KindReconciliation  Kind = "ReconciliationError"
	KindUserNotFound    Kind = "UserNotFoundError"
	KindNotFound        Kind = "NotFound"
	KindBadRequest      Kind = "BadRequest"
	KindForbidden       Kind = "Forbidden"
	KindTooManyRequests Kind = "TooManyRequests"
	KindInternal        Kind = "Internal"
)

const internalMessage = "Internal Server Error"

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

func Signing(err error) *Error {
	return newError(KindSigning, http.StatusInternalServerError, "token signing failed", err)
}

func InvalidToken(err error) *Error {
	return newError(KindInvalidToken, http.StatusUnauthorized, "invalid token", err)
}

// ProviderAuthentication names the provider whose round-trip failed.
func ProviderAuthentication(provider string, err error) *Error {
	return newError(KindProviderAuth, http.StatusBadGateway, provider+" authentication failed", err)
}

func Reconciliation(err error) *Error {
	return newError(KindReconciliation, http.StatusInternalServerError, "identity reconciliation failed", err)
}

func UserNotFound(err error) *Error {
	return newError(KindUserNotFound, http.StatusNotFound, "User not found", err)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil)
}

func BadRequest(message string) *Error {
	return newError(KindBadRequest, http.StatusBadRequest, message, nil)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, http.StatusForbidden, message, nil)
}

func TooManyRequests(message string) *Error {
	return newError(KindTooManyRequests, http.StatusTooManyRequests, message, nil)
}

func Internal(err error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, internalMessage, err)
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf maps err to an HTTP status; unknown errors are 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage is the message safe to return to clients. 5xx details are masked.
func PublicMessage(err error) string {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		return internalMessage
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Write logs err and renders the uniform {"error": message} body.
func Write(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	message := PublicMessage(err)

	logger.Error(fmt.Sprintf("[%d] %s", status, message), map[string]any{
		"kind":  string(KindOf(err)),
		"error": err.Error(),
	})

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
