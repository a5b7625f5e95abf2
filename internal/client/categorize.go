package client

import (
	"context"
	"errors"
	"strings"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/units"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryEmptyInput       ErrorCategory = "empty_input"
	ErrorCategoryInvalidAPIKey    ErrorCategory = "invalid_api_key"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream         ErrorCategory = "upstream"
	ErrorCategoryParsing          ErrorCategory = "parsing"
	ErrorCategoryUnknownUnit      ErrorCategory = "unknown_unit"
	ErrorCategoryStorage          ErrorCategory = "storage"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// CategorizeError maps an error from any stage of a refresh to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, validation.ErrEmptyInput) {
		return ErrorCategoryEmptyInput
	}
	if errors.Is(err, units.ErrUnknownUnit) {
		return ErrorCategoryUnknownUnit
	}
	if errors.Is(err, cache.ErrStorage) {
		return ErrorCategoryStorage
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		return ErrorCategoryInvalidAPIKey
	}
	if errors.Is(err, ErrLocationNotFound) {
		return ErrorCategoryLocationNotFound
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorCategoryRateLimited
	}
	if errors.Is(err, ErrMalformedResponse) {
		return ErrorCategoryParsing
	}
	if errors.Is(err, ErrProvider) {
		return ErrorCategoryUpstream
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrNetwork) || strings.Contains(errStr, "connection") {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}
