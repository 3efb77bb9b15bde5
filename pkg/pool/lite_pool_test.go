package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func (c *counter) Reset() { c.n = 0 }

func TestNewLitePool_Validation(t *testing.T) {
	_, err := NewLitePool[*counter](nil)
	assert.ErrorIs(t, err, ErrNilConstructor)

	_, err = NewLitePool(func() *counter { return nil })
	assert.Error(t, err)
}

func TestPool_PutResets(t *testing.T) {
	p, err := NewLitePool(func() *counter { return &counter{} })
	require.NoError(t, err)

	c := p.Get()
	c.n = 42
	p.Put(c)
	assert.Zero(t, c.n)
}

func TestBufferPool(t *testing.T) {
	_, err := NewBufferPool(0)
	assert.Error(t, err)

	p, err := NewBufferPool(64)
	require.NoError(t, err)

	buf := p.Get()
	assert.Len(t, buf.B, 64)

	buf.B = buf.B[:10]
	p.Put(buf)
	assert.Len(t, buf.B, 64)
}
