// Package chip8 implements a CHIP-8 virtual machine: the fetch-decode-execute
// core, the 64x32 framebuffer, the delay/sound timers, and the 16-key
// keypad oracle. It never imports a rendering, audio, or input library --
// those are external collaborators the host wires in through the Keypad,
// Clock, and AudioSink interfaces (see internal/render, internal/audio, and
// internal/input for the pixel/beep-backed implementations).
package chip8

import (
	"context"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
)

// AudioSink is the external collaborator that turns the sound timer into an
// audible beep. SetLevel is called once per Step with the sound timer's
// nonzero-ness; a sink must stop sounding within one 60 Hz frame of false.
type AudioSink interface {
	SetLevel(on bool)
}

type noopAudioSink struct{}

func (noopAudioSink) SetLevel(bool) {}

// realClock reads the host's monotonic wall clock.
type realClock struct{ start time.Time }

func newRealClock() *realClock {
	return &realClock{start: time.Now()}
}

func (c *realClock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// VM is a CHIP-8 virtual machine. The zero value is not usable; construct
// one with NewVM.
type VM struct {
	mem [MemorySize]byte
	reg registerFile
	gfx display

	delay timer
	sound timer

	keypad Keypad
	clock  Clock
	audio  AudioSink
	onDraw func([DisplaySize]byte)

	rng *rand.Rand

	shiftUsesX   bool
	memOpsLeaveI bool

	lastWord uint16 // opcode under examination, kept for error context
}

// Option configures a VM at construction time. Semantic-variant flags and
// collaborators are both set this way so the dispatch table never has to
// branch on how the VM was built.
type Option func(*VM)

// WithKeypad overrides the default LatchingKeypad with the given oracle.
func WithKeypad(k Keypad) Option {
	return func(vm *VM) { vm.keypad = k }
}

// WithClock overrides the default wall clock, primarily for tests.
func WithClock(c Clock) Option {
	return func(vm *VM) { vm.clock = c }
}

// WithAudioSink wires a collaborator that renders the sound timer audibly.
func WithAudioSink(a AudioSink) Option {
	return func(vm *VM) { vm.audio = a }
}

// WithDrawSink registers a callback invoked with a framebuffer snapshot each
// Step that executed a clear (00E0) or draw (Dxyn) opcode.
func WithDrawSink(fn func([DisplaySize]byte)) Option {
	return func(vm *VM) { vm.onDraw = fn }
}

// WithRandSource overrides the PRNG cxnn draws from, for deterministic tests.
func WithRandSource(r *rand.Rand) Option {
	return func(vm *VM) { vm.rng = r }
}

// WithLegacyShift selects the legacy 8xy6/8xyE convention: Vx is derived
// from Vy (shift-then-assign), instead of the modern Vx-shifts-itself
// convention. Default is modern.
func WithLegacyShift() Option {
	return func(vm *VM) { vm.shiftUsesX = false }
}

// WithLegacyMemOps selects the legacy Fx55/Fx65 convention: I advances by
// x+1 as a side effect. Default is modern (I is left unchanged).
func WithLegacyMemOps() Option {
	return func(vm *VM) { vm.memOpsLeaveI = false }
}

// NewVM returns an initialized VM with the font loaded at FontBase, PC at
// EntryPoint, modern shift/memops semantics, a real-time clock, a
// LatchingKeypad, and a no-op audio sink, then applies opts.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		reg:          newRegisterFile(),
		keypad:       NewLatchingKeypad(),
		audio:        noopAudioSink{},
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		shiftUsesX:   true,
		memOpsLeaveI: true,
	}
	vm.clock = newRealClock()
	copy(vm.mem[FontBase:FontBase+len(Font)], Font[:])

	for _, opt := range opts {
		opt(vm)
	}

	vm.delay = newTimer(vm.clock)
	vm.sound = newTimer(vm.clock)

	return vm
}

// LoadROM reads at most MaxROMSize bytes from r into memory starting at
// EntryPoint. Shorter images are valid; remaining memory stays zero. A
// longer image is a load-time error.
func (vm *VM) LoadROM(r io.Reader) error {
	buf := make([]byte, MaxROMSize+1)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "reading rom")
	}
	if n > MaxROMSize {
		return &LoadTooLargeError{Size: n}
	}
	copy(vm.mem[EntryPoint:], buf[:n])
	return nil
}

// LoadROMFile is a convenience wrapper around LoadROM for a path on disk.
func (vm *VM) LoadROMFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening rom %s", path)
	}
	defer f.Close()
	return vm.LoadROM(f)
}

// Snapshot returns a copy of the 64x32 framebuffer.
func (vm *VM) Snapshot() [DisplaySize]byte {
	return vm.gfx.snapshot()
}

// DelayTimer returns the current delay timer value.
func (vm *VM) DelayTimer() byte { return vm.delay.get() }

// SoundTimer returns the current sound timer value.
func (vm *VM) SoundTimer() byte { return vm.sound.get() }

// PC returns the current program counter, for diagnostics.
func (vm *VM) PC() uint16 { return vm.reg.pc }

// V returns the current value of register Vx (x in 0..15), for diagnostics.
func (vm *VM) V(x int) byte { return vm.reg.v[x&0x0F] }

// I returns the current value of the I register, for diagnostics.
func (vm *VM) I() uint16 { return vm.reg.i }

// LastOpcode returns the most recently fetched 16-bit opcode word, for
// diagnostics (State().Opcode carries the same value).
func (vm *VM) LastOpcode() uint16 { return vm.lastWord }

// State is a point-in-time, exported snapshot of VM internals for the dump
// CLI command. It is the replacement for the teacher's ad hoc debug()
// Printf block -- here it's a plain struct go-spew can pretty-print.
type State struct {
	Opcode     uint16
	PC         uint16
	SP         int8
	I          uint16
	V          [NumRegisters]byte
	Stack      [StackSize]uint16
	DelayTimer byte
	SoundTimer byte
	Display    [DisplaySize]byte
}

// State captures a snapshot of the VM for diagnostics.
func (vm *VM) State() State {
	return State{
		Opcode:     vm.lastWord,
		PC:         vm.reg.pc,
		SP:         vm.reg.sp,
		I:          vm.reg.i,
		V:          vm.reg.v,
		Stack:      vm.reg.stack,
		DelayTimer: vm.delay.get(),
		SoundTimer: vm.sound.get(),
		Display:    vm.gfx.snapshot(),
	}
}

// Step performs one fetch-decode-dispatch-tick cycle: fetch two bytes at PC,
// decode, advance PC by two (so skip instructions can add a clean second
// two), dispatch the handler, then sample the timers into the audio sink and
// push a draw snapshot if the framebuffer changed this step. Every opcode
// completes in bounded time except fx0a, which blocks on ctx and the keypad
// oracle until a key arrives or ctx is canceled.
func (vm *VM) Step(ctx context.Context) error {
	pc := vm.reg.pc
	if int(pc)+1 >= MemorySize {
		return &MemoryOutOfRangeError{PC: pc, Index: int(pc) + 1, Field: "pc fetch"}
	}

	instr := decode(vm.mem[pc], vm.mem[pc+1])
	vm.lastWord = instr.word
	vm.reg.pc += 2

	changed, err := vm.dispatch(ctx, instr)
	if err != nil {
		return err
	}

	vm.audio.SetLevel(vm.sound.get() > 0)
	if changed && vm.onDraw != nil {
		vm.onDraw(vm.gfx.snapshot())
	}

	return nil
}

// RunOptions configures the free-running loop.
type RunOptions struct {
	// RateHz is the target instruction rate. The spec recommends roughly
	// 500-1000 Hz; it defaults to 540 when zero.
	RateHz int
}

const defaultRateHz = 540

// Run drives Step on a ticker until ctx is canceled or Step returns an
// error. It is the caller-facing pacing hook the core exposes so a host
// doesn't have to busy-loop Step itself.
func (vm *VM) Run(ctx context.Context, opts RunOptions) error {
	rate := opts.RateHz
	if rate <= 0 {
		rate = defaultRateHz
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := vm.Step(ctx); err != nil {
				return err
			}
		}
	}
}
