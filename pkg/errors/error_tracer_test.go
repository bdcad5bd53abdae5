package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = stderrors.New("sentinel")

func TestTracerKeepsChainAndStack(t *testing.T) {
	tracer := NewTracer("open output log").Wrap(errSentinel)

	assert.Equal(t, "open output log: sentinel", tracer.Error())
	assert.ErrorIs(t, tracer, errSentinel)
	require.NotNil(t, tracer.StackTrace())
}

func TestTracerFromError(t *testing.T) {
	tracer := TracerFromError(errSentinel)
	assert.Equal(t, "sentinel", tracer.Error())
	assert.ErrorIs(t, tracer, errSentinel)
	assert.NotEmpty(t, tracer.StackTrace())
}

func TestWrapf(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "noop"))

	err := Wrapf(errSentinel, "segment %d", 3)
	assert.EqualError(t, err, "segment 3: sentinel")
	assert.ErrorIs(t, err, errSentinel)
	_, ok := err.(StackTracer)
	assert.True(t, ok)
}
