package socialgraph

import (
	"errors"
	"strings"

	"github.com/dan-solli/socialgraph/pkg/store"
)

// Error kind constants for classification
const (
	KindNotFound        = "not_found"
	KindConflict        = "conflict"
	KindInvalidArgument = "invalid_argument"
	KindDatabase        = "database"
	KindUnknown         = "unknown"
)

// ClassifyError inspects an error and returns its kind classification.
// This enables grouping errors by category in metrics and mapping them to
// caller-visible statuses at the service boundary. All store failures are
// recoverable outcomes, never process-fatal.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrConnectionNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, store.ErrConnectionExists):
		return KindConflict
	case errors.Is(err, store.ErrSelfConnection):
		return KindInvalidArgument
	}

	errStrLower := strings.ToLower(err.Error())
	if strings.Contains(errStrLower, "sql") ||
		strings.Contains(errStrLower, "database") ||
		strings.Contains(errStrLower, "constraint") {
		return KindDatabase
	}

	return KindUnknown
}
