package errx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := WrapLLM(base)

	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "completion request failed: connection refused", err.Error())
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, LLMErrorMessage, MessageOf(err))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, WrapLLM(nil))
	assert.NoError(t, WrapSQL(nil))
	assert.NoError(t, WrapTool(nil))
	assert.NoError(t, WrapRedis(nil))
}

func TestWrapRedis(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapRedis(redis.Nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errors.New("timeout"))))
}

func TestStatusOfPlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, SystemErrorMessage, MessageOf(err))
}

func TestNotFoundWithoutCause(t *testing.T) {
	err := NotFound("session not found")
	assert.Equal(t, "session not found", err.Error())
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}
