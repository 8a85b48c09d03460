package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	t.Run("create API error", func(t *testing.T) {
		err := &APIError{
			StatusCode: 400,
			Code:       "TEST_ERROR",
			Message:    "Test error",
			Details:    map[string]interface{}{"field": "value"},
		}

		assert.Equal(t, 400, err.StatusCode)
		assert.Equal(t, "TEST_ERROR", err.Code)
		assert.Equal(t, "Test error", err.Message)
		assert.Contains(t, err.Error(), "TEST_ERROR")
		assert.Contains(t, err.Error(), "Test error")
	})

	t.Run("cause is unwrapped", func(t *testing.T) {
		err := Parse("Malformed CSV", assert.AnError)

		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "caused by")
	})

	t.Run("with details copies", func(t *testing.T) {
		base := NotFound("Dataset not found")
		withID := base.WithDetails("dataset_id", "ds-1")

		assert.Nil(t, base.Details)
		assert.Equal(t, "ds-1", withID.Details["dataset_id"])
		assert.Equal(t, base.Code, withID.Code)
	})
}

func TestErrorCreators(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("Resource not found")

		assert.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "Resource not found")
	})

	t.Run("Validation", func(t *testing.T) {
		originalErr := assert.AnError
		err := Validation("Invalid input", originalErr)

		assert.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Contains(t, err.Error(), "Invalid input")
	})

	t.Run("RunInProgress", func(t *testing.T) {
		err := RunInProgress("ds-1", "profiling")

		assert.True(t, IsConflict(err))
		assert.Equal(t, http.StatusConflict, err.StatusCode)
		assert.Equal(t, "profiling", err.Details["run_kind"])
	})

	t.Run("DelegationFailure", func(t *testing.T) {
		err := DelegationFailure("Classifier timed out", assert.AnError)

		assert.True(t, IsDelegationFailure(err))
		assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	})

	t.Run("PersistenceFailure", func(t *testing.T) {
		err := PersistenceFailure("Write failed", assert.AnError)

		assert.True(t, IsPersistenceFailure(err))
		assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	})
}

func TestErrorCheckers(t *testing.T) {
	t.Run("wrapped errors are recognized", func(t *testing.T) {
		wrapped := fmt.Errorf("profiling: %w", Parse("bad header", nil))

		assert.True(t, IsParse(wrapped))
		assert.Equal(t, ErrParse, CodeOf(wrapped))
		assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatusCode(wrapped))
	})

	t.Run("foreign errors", func(t *testing.T) {
		assert.False(t, IsNotFound(assert.AnError))
		assert.False(t, IsEmptyDataset(assert.AnError))
		assert.Equal(t, ErrInternal, CodeOf(assert.AnError))
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatusCode(assert.AnError))
	})

	t.Run("AsAPIError", func(t *testing.T) {
		apiErr, ok := AsAPIError(EmptyDataset("no rows"))
		require.True(t, ok)
		assert.Equal(t, ErrEmptyDataset, apiErr.Code)

		_, ok = AsAPIError(assert.AnError)
		assert.False(t, ok)
	})
}

func TestStatusCodeMapping(t *testing.T) {
	cases := map[string]int{
		ErrValidation:            http.StatusBadRequest,
		ErrForbidden:             http.StatusForbidden,
		ErrParse:                 http.StatusUnprocessableEntity,
		ErrComputationDegenerate: http.StatusUnprocessableEntity,
		ErrTooManyRequests:       http.StatusTooManyRequests,
		ErrServiceUnavailable:    http.StatusServiceUnavailable,
		ErrTimeout:               http.StatusGatewayTimeout,
		"UNKNOWN":                http.StatusInternalServerError,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, GetHTTPStatusCodeFromErrorCode(code))
		})
	}
}
