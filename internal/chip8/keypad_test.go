package chip8

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatchingKeypad_PressRelease(t *testing.T) {
	kp := NewLatchingKeypad()
	require.False(t, kp.IsDown(0x3))
	kp.Press(0x3)
	require.True(t, kp.IsDown(0x3))
	kp.Release(0x3)
	require.False(t, kp.IsDown(0x3))
}

func TestLatchingKeypad_AwaitPressReturnsOnPress(t *testing.T) {
	kp := NewLatchingKeypad()
	result := make(chan byte, 1)
	go func() {
		key, err := kp.AwaitPress(context.Background())
		require.NoError(t, err)
		result <- key
	}()

	time.Sleep(10 * time.Millisecond) // let the waiter register
	kp.Press(0xC)

	select {
	case key := <-result:
		require.Equal(t, byte(0xC), key)
	case <-time.After(time.Second):
		t.Fatal("AwaitPress did not return")
	}
}

func TestLatchingKeypad_AwaitPressCanceled(t *testing.T) {
	kp := NewLatchingKeypad()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := kp.AwaitPress(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
