package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsByCode(t *testing.T) {
	err := ErrNotFound.WithMessage("transaction not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrBadRequest))
	assert.Equal(t, 404, err.HttpCode)
	assert.Equal(t, "资源不存在", ErrNotFound.Message)
}

func TestWithErrorDoesNotMutate(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := ErrServer.WithError(cause)
	assert.Nil(t, ErrServer.Err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "服务器异常: boom", err.Error())
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	wrapped := fmt.Errorf("layer: %w", ErrUnauthorized)
	assert.Equal(t, ErrUnauthorized.Code, From(wrapped).Code)

	plain := From(fmt.Errorf("plain"))
	assert.Equal(t, ErrServer.Code, plain.Code)
	assert.Equal(t, 500, plain.HttpCode)
}

func TestNewDefaultsHttpCode(t *testing.T) {
	err := New(9999, 0, "x", nil)
	assert.Equal(t, 200, err.HttpCode)
}
