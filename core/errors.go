package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConnectorErrorBadInput            = "CONNECTOR_BAD_INPUT"
	ConnectorErrorProviderNotFound    = "CONNECTOR_PROVIDER_NOT_FOUND"
	ConnectorErrorStateInvalid        = "CONNECTOR_STATE_INVALID"
	ConnectorErrorTokenExchangeFailed = "CONNECTOR_TOKEN_EXCHANGE_FAILED"
	ConnectorErrorNotConnected        = "CONNECTOR_NOT_CONNECTED"
	ConnectorErrorReconnectRequired   = "CONNECTOR_RECONNECT_REQUIRED"
	ConnectorErrorRefreshUnavailable  = "CONNECTOR_REFRESH_UNAVAILABLE"
	ConnectorErrorInternal            = "CONNECTOR_INTERNAL_ERROR"
)

func connectorErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConnectorErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "provider") && (strings.Contains(msg, "not found") || strings.Contains(msg, "not configured")):
		return newConnectorError(err.Error(), goerrors.CategoryNotFound, ConnectorErrorProviderNotFound)
	case strings.Contains(msg, "credential not found"), strings.Contains(msg, "not connected"):
		return newConnectorError(err.Error(), goerrors.CategoryNotFound, ConnectorErrorNotConnected)
	case strings.Contains(msg, "authorization state"), strings.Contains(msg, "callback state"):
		return newConnectorError(err.Error(), goerrors.CategoryAuth, ConnectorErrorStateInvalid)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newConnectorError(err.Error(), goerrors.CategoryBadInput, ConnectorErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureConnectorErrorEnvelope(mapped)
}

func newConnectorError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureConnectorErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureConnectorErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectorHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConnectorTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultConnectorTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ConnectorErrorBadInput
	case goerrors.CategoryNotFound:
		return ConnectorErrorNotConnected
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ConnectorErrorStateInvalid
	case goerrors.CategoryConflict:
		return ConnectorErrorReconnectRequired
	case goerrors.CategoryOperation:
		return ConnectorErrorRefreshUnavailable
	default:
		return ConnectorErrorInternal
	}
}

func connectorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HasTextCode reports whether err carries the given connector text code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func IsProviderNotFound(err error) bool { return HasTextCode(err, ConnectorErrorProviderNotFound) }

func IsStateInvalid(err error) bool { return HasTextCode(err, ConnectorErrorStateInvalid) }

func IsNotConnected(err error) bool { return HasTextCode(err, ConnectorErrorNotConnected) }

func IsReconnectRequired(err error) bool { return HasTextCode(err, ConnectorErrorReconnectRequired) }

func IsRefreshUnavailable(err error) bool { return HasTextCode(err, ConnectorErrorRefreshUnavailable) }
