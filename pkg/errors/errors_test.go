package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WithDetailCopies(t *testing.T) {
	detailed := ErrEmptyResponses.WithDetail("no answers for user")

	assert.Equal(t, "no answers for user", detailed.Detail)
	// 预定义错误不被污染
	assert.Empty(t, ErrEmptyResponses.Detail)
	assert.ErrorIs(t, detailed, ErrEmptyResponses)
}

func TestAppError_WrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeDatabaseError, "query responses failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrEmptyResponses, http.StatusUnprocessableEntity},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrSignatureRejected, http.StatusBadRequest},
		{ErrResponsesNotFound, http.StatusNotFound},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrTooManyRequests, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus, string(tt.err.Code))
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := AsAppError(stderrors.New("boom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeUnknown, wrapped.Code)

	same := AsAppError(ErrStoryNotFound)
	assert.Same(t, ErrStoryNotFound, same)
}
