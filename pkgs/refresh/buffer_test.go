package refresh

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keskad/dcc/pkgs/dcc"
)

// traverse reads the rest of the current slot
func traverse(b *Buffer) dcc.Bits {
	var bits dcc.Bits
	for {
		bits = append(bits, b.NextBit())
		if _, bit := b.Cursor(); bit == 0 {
			return bits
		}
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(0)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func TestBuffer_Slot(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Slots())

	_, err = b.Slot(1)
	assert.NoError(t, err)
	_, err = b.Slot(2)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
	_, err = b.Slot(-1)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func TestBuffer_IdleCycle(t *testing.T) {
	b, err := New(3)
	require.NoError(t, err)

	var stream dcc.Bits
	for i := 0; i < 3; i++ {
		bits := traverse(b)
		assert.Len(t, bits, 56)
		stream = append(stream, bits...)
	}
	slot, bit := b.Cursor()
	assert.Equal(t, 0, slot)
	assert.Equal(t, 0, bit)

	frames, err := dcc.DecodeStream(stream)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for _, f := range frames {
		in, err := dcc.Interpret(f.Bytes)
		require.NoError(t, err)
		assert.Equal(t, dcc.KindIdle, in.Kind)
	}
}

func TestBuffer_FlipOnlyAtBoundary(t *testing.T) {
	m := mustCmd(t)
	b, err := New(2)
	require.NoError(t, err)
	slot0, err := b.Slot(0)
	require.NoError(t, err)

	// read into the middle of slot 0, then stage an update for it
	var first dcc.Bits
	for i := 0; i < 10; i++ {
		first = append(first, b.NextBit())
	}
	throttle := m(dcc.Throttle(3, 63, true, false))
	require.NoError(t, slot0.Load(throttle))

	for {
		first = append(first, b.NextBit())
		if s, _ := b.Cursor(); s != 0 {
			break
		}
		assert.Equal(t, 56, slot0.Len(), "active packet changed mid traversal")
	}
	frames, err := dcc.DecodeStream(first)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, dcc.Idle().Bytes(), frames[0].Bytes)

	// slot 1 still idle, untouched
	assert.Len(t, traverse(b), 56)

	// back at slot 0: the update is active in full
	s, bit := b.Cursor()
	assert.Equal(t, 0, s)
	assert.Equal(t, 0, bit)
	assert.Equal(t, 64, slot0.Len())

	frames, err = dcc.DecodeStream(traverse(b))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, throttle.Bytes(), frames[0].Bytes)
}

func TestBuffer_UpdateNextSlotSameCycle(t *testing.T) {
	m := mustCmd(t)
	b, err := New(2)
	require.NoError(t, err)
	slot1, err := b.Slot(1)
	require.NoError(t, err)

	b.NextBit()
	fg1 := m(dcc.FunctionGroup1(42, 0b10000))
	require.NoError(t, slot1.Load(fg1))

	traverse(b) // rest of slot 0
	frames, err := dcc.DecodeStream(traverse(b))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, fg1.Bytes(), frames[0].Bytes)
}

func TestBuffer_SingleSlot(t *testing.T) {
	m := mustCmd(t)
	b, err := New(1)
	require.NoError(t, err)
	slot0, err := b.Slot(0)
	require.NoError(t, err)

	require.NoError(t, slot0.Load(m(dcc.Throttle(5, 1, false, false))))
	assert.Len(t, traverse(b), 56, "idle is finished first")
	assert.Len(t, traverse(b), 64)
	assert.Len(t, traverse(b), 64)
}

func TestBuffer_ConcurrentProducer(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			slot, err := b.Slot(i % 2)
			if err != nil {
				t.Error(err)
				return
			}
			addr := dcc.Address(1 + i%9999)
			throttle, err := dcc.Throttle(addr, uint8(i%127), i%3 == 0, false)
			if err != nil {
				t.Error(err)
				return
			}
			fg1, err := dcc.FunctionGroup1(addr, byte(i))
			if err != nil {
				t.Error(err)
				return
			}
			if err := slot.Load(throttle, fg1); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	traversals := 0
	var current dcc.Bits
	for i := 0; i < 300000; i++ {
		current = append(current, b.NextBit())
		if _, bit := b.Cursor(); bit != 0 {
			continue
		}
		frames, err := dcc.DecodeStream(current)
		require.NoError(t, err)
		require.NotEmpty(t, frames)
		for _, f := range frames {
			require.True(t, f.Valid(), "torn frame % X", f.Bytes)
			_, err := dcc.Interpret(f.Bytes)
			require.NoError(t, err)
		}
		current = current[:0]
		traversals++
	}
	assert.Greater(t, traversals, 1000)
}
