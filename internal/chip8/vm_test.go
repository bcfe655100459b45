package chip8

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets timer tests control elapsed time without sleeping.
type fakeClock struct {
	ms int64
}

func (c *fakeClock) NowMillis() int64 { return c.ms }
func (c *fakeClock) advance(ms int64) { c.ms += ms }

func newTestVM(t *testing.T, rom []byte, opts ...Option) (*VM, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	allOpts := append([]Option{
		WithClock(clock),
		WithRandSource(rand.New(rand.NewSource(1))),
	}, opts...)
	vm := NewVM(allOpts...)
	require.NoError(t, vm.LoadROM(bytes.NewReader(rom)))
	return vm, clock
}

func step(t *testing.T, vm *VM) {
	t.Helper()
	require.NoError(t, vm.Step(context.Background()))
}

func TestLoadROM_ZeroPadsRemainingMemory(t *testing.T) {
	vm, _ := newTestVM(t, []byte{0x60, 0x05})
	require.Equal(t, byte(0x60), vm.mem[EntryPoint])
	require.Equal(t, byte(0x05), vm.mem[EntryPoint+1])
	require.Equal(t, byte(0), vm.mem[EntryPoint+2])
}

func TestLoadROM_TooLarge(t *testing.T) {
	vm := NewVM()
	big := make([]byte, MaxROMSize+1)
	err := vm.LoadROM(bytes.NewReader(big))
	require.Error(t, err)
	var tooLarge *LoadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
}

func TestFontLoadedAtBase(t *testing.T) {
	vm := NewVM()
	for i, b := range Font {
		require.Equal(t, b, vm.mem[FontBase+i])
	}
}

func TestStep_SkipAdvancesTwoExtra(t *testing.T) {
	// 6005 (V0=5), 3005 (skip since V0==5), 6099 (skipped), 60AA (landed on)
	vm, _ := newTestVM(t, []byte{
		0x60, 0x05,
		0x30, 0x05,
		0x60, 0x99,
		0x60, 0xAA,
	})
	step(t, vm) // V0 = 5
	require.Equal(t, byte(0x05), vm.V(0))

	pcBefore := vm.PC()
	step(t, vm) // skip
	require.Equal(t, pcBefore+4, vm.PC())

	step(t, vm) // V0 = 0xAA
	require.Equal(t, byte(0xAA), vm.V(0))
}

func Test8xy4_CarryAndWrap(t *testing.T) {
	vm, _ := newTestVM(t, []byte{
		0x60, 0xFF, // V0 = 0xFF
		0x61, 0x01, // V1 = 0x01
		0x80, 0x14, // V0 += V1
	})
	step(t, vm)
	step(t, vm)
	step(t, vm)
	require.Equal(t, byte(0x00), vm.V(0))
	require.Equal(t, byte(1), vm.V(0xF))
}

func Test8xy5_BorrowFlag(t *testing.T) {
	vm, _ := newTestVM(t, []byte{
		0x60, 0x05, // V0 = 5
		0x61, 0x0A, // V1 = 10
		0x80, 0x15, // V0 -= V1 (borrow, VF=0)
	})
	step(t, vm)
	step(t, vm)
	step(t, vm)
	require.Equal(t, byte(0), vm.V(0xF))
	require.Equal(t, byte(0xFB), vm.V(0)) // 5 - 10 wraps mod 256
}

func TestCallReturn_RestoresPCAndSP(t *testing.T) {
	vm, _ := newTestVM(t, []byte{
		0x22, 0x04, // 0x200: call 0x204
		0x00, 0x00, // 0x202: (never reached directly)
		0x00, 0xEE, // 0x204: ret
	})
	step(t, vm) // call
	require.Equal(t, uint16(0x204), vm.PC())

	step(t, vm) // ret
	require.Equal(t, uint16(0x202), vm.PC())
	require.Equal(t, int8(-1), vm.reg.sp)
}

func TestStackOverflow(t *testing.T) {
	vm := NewVM()
	for i := 0; i < StackSize; i++ {
		require.NoError(t, vm.reg.push(0x200))
	}
	err := vm.reg.push(0x200)
	require.Error(t, err)
	var overflow *StackOverflowError
	require.ErrorAs(t, err, &overflow)
}

func TestStackUnderflow(t *testing.T) {
	vm := NewVM()
	_, err := vm.reg.pop()
	require.Error(t, err)
	var underflow *StackUnderflowError
	require.ErrorAs(t, err, &underflow)
}

func TestUnknownOpcode(t *testing.T) {
	vm, _ := newTestVM(t, []byte{0x00, 0x01}) // 0x0001: not 00E0/00EE
	err := vm.Step(context.Background())
	require.Error(t, err)
	var unknown *UnknownOpcodeError
	require.ErrorAs(t, err, &unknown)
}

func TestLDFX29_FontAddress(t *testing.T) {
	vm, _ := newTestVM(t, []byte{0x60, 0x05, 0xF0, 0x29}) // V0=5, I=font[5]
	step(t, vm)
	step(t, vm)
	require.Equal(t, uint16(FontBase+5*FontStride), vm.I())
	expected := Font[5*FontStride : 5*FontStride+5]
	require.Equal(t, expected, vm.mem[vm.I():vm.I()+5])
}

func TestLDFX33_BCD(t *testing.T) {
	vm, _ := newTestVM(t, []byte{0x60, 123, 0xA3, 0x00, 0xF0, 0x33}) // V0=123, I=0x300, bcd
	step(t, vm)
	step(t, vm)
	step(t, vm)
	require.Equal(t, byte(1), vm.mem[0x300])
	require.Equal(t, byte(2), vm.mem[0x301])
	require.Equal(t, byte(3), vm.mem[0x302])
}

func TestDraw_XORIsSelfInverse(t *testing.T) {
	// Sprite for "0": F0 90 90 90 F0, loaded at 0x300; draw it at (0,0) twice.
	rom := []byte{
		0xA3, 0x00, // I = 0x300
		0xD0, 0x15, // draw 5-row sprite at (V0,V1)
		0xD0, 0x15, // draw again -> should clear everything, VF=1
	}
	vm, _ := newTestVM(t, rom)
	copy(vm.mem[0x300:], []byte{0xF0, 0x90, 0x90, 0x90, 0xF0})

	step(t, vm) // set I
	step(t, vm) // first draw
	require.Equal(t, byte(0), vm.V(0xF))
	snap1 := vm.Snapshot()
	require.NotEqual(t, [DisplaySize]byte{}, snap1)

	step(t, vm) // second draw
	require.Equal(t, byte(1), vm.V(0xF))
	require.Equal(t, [DisplaySize]byte{}, vm.Snapshot())
}

func TestSemanticVariant_ShiftModernVsLegacy(t *testing.T) {
	modern, _ := newTestVM(t, []byte{
		0x60, 0x04, // V0 = 4
		0x61, 0x02, // V1 = 2 (0b10)
		0x80, 0x16, // V0 = V0 >> 1 (modern: uses Vx)
	})
	step(t, modern)
	step(t, modern)
	step(t, modern)
	require.Equal(t, byte(4>>1), modern.V(0))
	require.Equal(t, byte(4&1), modern.V(0xF))

	legacy, _ := newTestVM(t, []byte{
		0x60, 0x04, // V0 = 4
		0x61, 0x02, // V1 = 2
		0x80, 0x16, // V0 = V1 >> 1 (legacy: uses Vy)
	}, WithLegacyShift())
	step(t, legacy)
	step(t, legacy)
	step(t, legacy)
	require.Equal(t, byte(2>>1), legacy.V(0))
	require.Equal(t, byte(2&1), legacy.V(0xF))
}

func TestSemanticVariant_MemOpsLeaveIByDefault(t *testing.T) {
	rom := []byte{
		0x60, 0x01, // V0 = 1
		0x61, 0x02, // V1 = 2
		0xA3, 0x00, // I = 0x300
		0xF1, 0x55, // dump V0..V1
	}
	modern, _ := newTestVM(t, rom)
	for i := 0; i < 4; i++ {
		step(t, modern)
	}
	require.Equal(t, uint16(0x300), modern.I())

	legacy, _ := newTestVM(t, rom, WithLegacyMemOps())
	for i := 0; i < 4; i++ {
		step(t, legacy)
	}
	require.Equal(t, uint16(0x300+2), legacy.I())
}

func TestTimers_DecayByWallClock(t *testing.T) {
	vm, clock := newTestVM(t, []byte{0x60, 0x3C, 0xF0, 0x15}) // V0=60, DT=V0
	step(t, vm)
	step(t, vm)
	require.Equal(t, byte(60), vm.DelayTimer())

	clock.advance(500) // half a second -> 30 ticks at 60Hz
	require.Equal(t, byte(30), vm.DelayTimer())

	clock.advance(2000) // long past zero
	require.Equal(t, byte(0), vm.DelayTimer())
}

func TestLDK_BlocksUntilKeypadPressed(t *testing.T) {
	kp := NewLatchingKeypad()
	vm, _ := newTestVM(t, []byte{0xF0, 0x0A}, WithKeypad(kp)) // wait for key -> V0

	done := make(chan struct{})
	go func() {
		require.NoError(t, vm.Step(context.Background()))
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // let the waiter register
	kp.Press(0xB)
	<-done
	require.Equal(t, byte(0xB), vm.V(0))
}

func TestLDK_CancelViaContext(t *testing.T) {
	kp := NewLatchingKeypad()
	vm, _ := newTestVM(t, []byte{0xF0, 0x0A}, WithKeypad(kp))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := vm.Step(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAudioSink_ReflectsSoundTimer(t *testing.T) {
	sink := &recordingSink{}
	vm, _ := newTestVM(t, []byte{0x60, 0x05, 0xF0, 0x18}, WithAudioSink(sink)) // DT irrelevant, ST=5
	step(t, vm)
	step(t, vm)
	require.True(t, sink.levels[len(sink.levels)-1])
}

type recordingSink struct {
	levels []bool
}

func (r *recordingSink) SetLevel(on bool) { r.levels = append(r.levels, on) }
