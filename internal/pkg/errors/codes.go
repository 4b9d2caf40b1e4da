package errors

import "net/http"

const (
	CodeNotLoaded       = "NOT_LOADED"
	CodeNotFound        = "NOT_FOUND"
	CodeNoFinerLevel    = "NO_FINER_LEVEL"
	CodeFetchFailed     = "FETCH_FAILED"
	CodeInvalidLevel    = "INVALID_LEVEL"
	CodeInvalidMetric   = "INVALID_METRIC"
	CodeInvalidFeature  = "INVALID_FEATURE"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeHTTPError       = "HTTP_ERROR"
)

var (
	// ErrNotLoaded - the level/parent scope was never populated
	ErrNotLoaded = New(
		CodeNotLoaded,
		"Geographic data not loaded",
		http.StatusNotFound,
	)

	ErrNotFound = New(
		CodeNotFound,
		"Feature not found at level",
		http.StatusNotFound,
	)

	ErrNoFinerLevel = New(
		CodeNoFinerLevel,
		"No finer administrative level",
		http.StatusBadRequest,
	)

	ErrFetchFailed = New(
		CodeFetchFailed,
		"Failed to fetch geographic data",
		http.StatusBadGateway,
	)

	ErrInvalidLevel = New(
		CodeInvalidLevel,
		"Invalid administrative level",
		http.StatusBadRequest,
	)

	ErrInvalidMetric = New(
		CodeInvalidMetric,
		"Invalid metric",
		http.StatusBadRequest,
	)

	ErrInvalidFeature = New(
		CodeInvalidFeature,
		"Invalid geographic feature",
		http.StatusUnprocessableEntity,
	)

	ErrSessionNotFound = New(
		CodeSessionNotFound,
		"Drill-down session not found",
		http.StatusNotFound,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
