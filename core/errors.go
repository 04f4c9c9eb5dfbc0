package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DistributionErrorBadInput          = "DISTRIBUTION_BAD_INPUT"
	DistributionErrorNotFound          = "DISTRIBUTION_NOT_FOUND"
	DistributionErrorChannelNotFound   = "DISTRIBUTION_CHANNEL_NOT_FOUND"
	DistributionErrorOAuthStateInvalid = "DISTRIBUTION_OAUTH_STATE_INVALID"
	DistributionErrorRefreshLocked     = "DISTRIBUTION_REFRESH_LOCKED"
	DistributionErrorNotConnected      = "DISTRIBUTION_NOT_CONNECTED"
	DistributionErrorRemoteCallFailed  = "DISTRIBUTION_REMOTE_CALL_FAILED"
	DistributionErrorInternal          = "DISTRIBUTION_INTERNAL_ERROR"
)

func distributionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureDistributionErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "channel") && strings.Contains(msg, "not registered"):
		return newDistributionError(err.Error(), goerrors.CategoryNotFound, DistributionErrorChannelNotFound)
	case strings.Contains(msg, "connection not found"), strings.Contains(msg, "special not found"):
		return newDistributionError(err.Error(), goerrors.CategoryNotFound, DistributionErrorNotFound)
	case strings.Contains(msg, "oauth callback state"), strings.Contains(msg, "oauth state"):
		return newDistributionError(err.Error(), goerrors.CategoryAuth, DistributionErrorOAuthStateInvalid)
	case strings.Contains(msg, "lock already held"), strings.Contains(msg, "refresh lock"):
		return newDistributionError(err.Error(), goerrors.CategoryConflict, DistributionErrorRefreshLocked)
	case strings.Contains(msg, "not connected"):
		return newDistributionError(err.Error(), goerrors.CategoryConflict, DistributionErrorNotConnected)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newDistributionError(err.Error(), goerrors.CategoryBadInput, DistributionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureDistributionErrorEnvelope(mapped)
}

func newDistributionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureDistributionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureDistributionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = distributionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultDistributionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultDistributionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return DistributionErrorBadInput
	case goerrors.CategoryNotFound:
		return DistributionErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return DistributionErrorOAuthStateInvalid
	case goerrors.CategoryConflict:
		return DistributionErrorRefreshLocked
	case goerrors.CategoryExternal:
		return DistributionErrorRemoteCallFailed
	default:
		return DistributionErrorInternal
	}
}

func distributionHTTPStatus(category goerrors.Category) int {
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
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
