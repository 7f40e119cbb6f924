// Package errors define los errores HTTP del servidor de autorización.
// Los endpoints OAuth responden con el formato de RFC 6749 §5.2
// ({"error":..., "error_description":...}); el resto usa el mismo writer.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OAuthError es la estructura estándar para errores del protocolo.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	HTTPStatus  int    `json:"-"`
	Err         error  `json:"-"` // causa original, solo para logs
}

// Error implementa la interfaz error.
func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Description)
}

// Unwrap permite acceder al error original.
func (e *OAuthError) Unwrap() error {
	return e.Err
}

// New crea un OAuthError.
func New(status int, code, description string) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		HTTPStatus:  status,
	}
}

// WithDescription devuelve una COPIA con otra descripción, para no mutar
// las variables globales base.
func (e *OAuthError) WithDescription(description string) *OAuthError {
	out := *e
	out.Description = description
	return &out
}

// WithCause devuelve una COPIA con el error original adjunto.
func (e *OAuthError) WithCause(err error) *OAuthError {
	out := *e
	out.Err = err
	return &out
}

// FromError convierte un error genérico en OAuthError. Si no lo es,
// devuelve server_error conservando la causa.
func FromError(err error) *OAuthError {
	if oe, ok := err.(*OAuthError); ok {
		return oe
	}
	return ErrServerError.WithCause(err)
}

// Errores predefinidos (RFC 6749 §4.1.2.1 y §5.2).
var (
	ErrInvalidRequest = &OAuthError{
		Code:        "invalid_request",
		Description: "The request is missing a required parameter or is otherwise malformed.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidClient = &OAuthError{
		Code:        "invalid_client",
		Description: "Client authentication failed.",
		HTTPStatus:  http.StatusUnauthorized,
	}

	ErrInvalidGrant = &OAuthError{
		Code:        "invalid_grant",
		Description: "The provided grant is invalid, expired, revoked or was issued to another client.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrAccessDenied = &OAuthError{
		Code:        "access_denied",
		Description: "The resource owner denied the request.",
		HTTPStatus:  http.StatusForbidden,
	}

	ErrUnsupportedGrantType = &OAuthError{
		Code:        "unsupported_grant_type",
		Description: "The authorization grant type is not supported.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrUnsupportedResponseType = &OAuthError{
		Code:        "unsupported_response_type",
		Description: "Only response_type=code is supported.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrInvalidScope = &OAuthError{
		Code:        "invalid_scope",
		Description: "The requested scope is invalid or not allowed for this client.",
		HTTPStatus:  http.StatusBadRequest,
	}

	ErrRateLimited = &OAuthError{
		Code:        "slow_down",
		Description: "Too many requests. Retry later.",
		HTTPStatus:  http.StatusTooManyRequests,
	}

	ErrServerError = &OAuthError{
		Code:        "server_error",
		Description: "An unexpected condition prevented the request from being fulfilled.",
		HTTPStatus:  http.StatusInternalServerError,
	}
)

// WriteError serializa un error en la respuesta. Los endpoints de tokens
// exigen no-store (RFC 6749 §5.1); lo aplicamos siempre por simplicidad.
func WriteError(w http.ResponseWriter, err error) {
	oe := FromError(err)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(oe.HTTPStatus)
	_ = json.NewEncoder(w).Encode(oe)
}

// WriteJSON serializa una respuesta exitosa con no-store.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
