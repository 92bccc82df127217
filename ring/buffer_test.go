package ring

import (
	"github.com/saylorsolutions/ringbus/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []uint64{0, 3, 6, 100} {
		_, err := New(size)
		assert.ErrorIs(t, err, ErrInvalidSize, "Size %d should be rejected", size)
	}
	_, err := New(4, LimboSize(0))
	assert.Error(t, err)
	b, err := New(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Size())
}

func TestBuffer_EnvelopeMapping(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	assert.Same(t, b.Envelope(1), b.Envelope(5), "Sequences a buffer apart should share a slot")
	assert.Same(t, b.Envelope(0), b.Envelope(4))
	assert.NotSame(t, b.Envelope(1), b.Envelope(2))
	for i := uint64(0); i < 16; i++ {
		assert.NotNil(t, b.Envelope(i))
	}
}

func TestPublish(t *testing.T) {
	b, err := New(4)
	require.NoError(t, err)
	for i := 1; i <= 6; i++ {
		seq, err := Publish(b, i*10)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
		r, ok := ReadAs[int](b.Envelope(seq))
		require.True(t, ok)
		assert.Equal(t, i*10, r.Value())
		assert.Equal(t, seq, r.Sequence())
		r.Release()
	}
	assert.Equal(t, uint64(6), b.Sequencer().Cursor())
	assert.Equal(t, uint64(6), b.Envelope(2).Sequence(), "Slot 2 should hold the second lap")

	last, err := b.NextN(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), last)
	_, err = b.NextN(5)
	assert.Error(t, err)

	b.Sequencer().Close()
	_, err = Publish(b, 1)
	assert.ErrorIs(t, err, sequence.ErrClosed)
}

func BenchmarkPublish(b *testing.B) {
	buf, err := New(1 << 16)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Publish(buf, i)
	}
}
