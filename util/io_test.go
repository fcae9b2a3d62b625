package util

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestCloseAggregatesErrors(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	a, b, c := &closer{err: e1}, &closer{}, &closer{err: e2}
	err := Close(a, nil, b, c)
	assert.True(t, a.closed && b.closed && c.closed)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)

	assert.NoError(t, Close(&closer{}, &closer{}))
}

func TestCloseWhileHandlingError(t *testing.T) {
	prior := Errorf(ErrEOF, "read past EOF")
	failing := &closer{err: errors.New("close failed")}
	err := CloseWhileHandlingError(prior, failing)
	assert.True(t, failing.closed)
	assert.ErrorIs(t, err, ErrEOF)

	assert.Equal(t, prior, CloseWhileHandlingError(prior, &closer{}))
	assert.NoError(t, CloseWhileHandlingError(nil, &closer{}))
}

func TestCloseWhileSuppressingError(t *testing.T) {
	c := &closer{err: errors.New("ignored")}
	CloseWhileSuppressingError(c, (io.Closer)(nil))
	assert.True(t, c.closed)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk on fire")
	err := WrapError(ErrIO, cause, "writing %v", "_0.tis")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEOF)
	assert.Contains(t, err.Error(), "_0.tis")

	assert.Nil(t, WrapError(ErrIO, nil, "nothing"))

	var e *Error
	assert.True(t, errors.As(Errorf(ErrLock, "busy"), &e))
	assert.Equal(t, ErrLock, e.Kind)
}
