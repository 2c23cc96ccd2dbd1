package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
}

func TestHasCode_WalksChain(t *testing.T) {
	t.Run("finds outer code", func(t *testing.T) {
		err := New(CodeConflict, "pair already registered")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("finds inner code through wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "registration not found")
		outer := Wrap(inner, CodeInternal, "lookup failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("uncoded errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	t.Run("outermost code wins", func(t *testing.T) {
		err := Wrap(New(CodeNotFound, "inner"), CodeUnavailable, "outer")
		assert.Equal(t, CodeUnavailable, CodeOf(err))
	})

	t.Run("uncoded defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("driver: broken pipe")))
	})

	t.Run("nil has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
	})
}

func TestError_PreservesCauseForErrorsIs(t *testing.T) {
	sentinelErr := errors.New("row not found")
	wrapped := Wrap(fmt.Errorf("load registration: %w", sentinelErr), CodeNotFound, "registration not found")

	require.Error(t, wrapped)
	assert.True(t, errors.Is(wrapped, sentinelErr))
	assert.Contains(t, wrapped.Error(), "not_found")
	assert.Contains(t, wrapped.Error(), "row not found")
}
