package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bradford-hamilton/chip8vm/internal/audio"
	"github.com/bradford-hamilton/chip8vm/internal/chip8"
	"github.com/bradford-hamilton/chip8vm/internal/input"
	"github.com/bradford-hamilton/chip8vm/internal/render"
	"github.com/spf13/cobra"
)

// frameRateHz is how often the run loop polls input and repaints the
// window; it's independent of the CPU instruction rate driven by vm.Run.
const frameRateHz = 60

var (
	legacyShift  bool
	legacyMemOps bool
	instrRateHz  int
)

// runCmd runs a ROM in a window and waits for a shutdown signal to exit.
var runCmd = &cobra.Command{
	Use:   "run path/to/rom",
	Short: "run a ROM in a window",
	Args:  cobra.ExactArgs(1),
	RunE:  runChip8,
}

func init() {
	runCmd.Flags().BoolVar(&legacyShift, "legacy-shift", false, "use the legacy 8xy6/8xyE shift convention (Vx derives from Vy)")
	runCmd.Flags().BoolVar(&legacyMemOps, "legacy-memops", false, "use the legacy Fx55/Fx65 convention (I advances by x+1)")
	runCmd.Flags().IntVar(&instrRateHz, "rate", 540, "instruction rate in Hz")
}

// frameHolder hands a framebuffer snapshot from the VM's Step goroutine to
// the main-thread draw loop. pixelgl's GL calls are only safe from the
// thread pixelgl.Run pinned, so the draw sink can't call win.DrawGraphics
// directly -- it has to hand off through something like this instead.
type frameHolder struct {
	mu    sync.Mutex
	buf   [chip8.DisplaySize]byte
	dirty bool
}

func (f *frameHolder) set(b [chip8.DisplaySize]byte) {
	f.mu.Lock()
	f.buf = b
	f.dirty = true
	f.mu.Unlock()
}

func (f *frameHolder) takeDirty() ([chip8.DisplaySize]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return [chip8.DisplaySize]byte{}, false
	}
	f.dirty = false
	return f.buf, true
}

func runChip8(cmd *cobra.Command, args []string) error {
	romPath := args[0]

	sink, err := audio.NewSink()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer sink.Close()

	keypad := chip8.NewLatchingKeypad()
	frame := &frameHolder{}

	opts := []chip8.Option{
		chip8.WithKeypad(keypad),
		chip8.WithAudioSink(sink),
		chip8.WithDrawSink(frame.set),
	}
	if legacyShift {
		opts = append(opts, chip8.WithLegacyShift())
	}
	if legacyMemOps {
		opts = append(opts, chip8.WithLegacyMemOps())
	}

	vm := chip8.NewVM(opts...)
	if err := vm.LoadROMFile(romPath); err != nil {
		return fmt.Errorf("loading rom %s: %w", romPath, err)
	}

	win, err := render.NewWindow(chip8.DisplayWidth, chip8.DisplayHeight, render.WithTitle(romPath))
	if err != nil {
		return fmt.Errorf("opening window: %w", err)
	}
	poller := input.NewPoller(win, nil)
	defer poller.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runErrC := make(chan error, 1)
	go func() {
		runErrC <- vm.Run(ctx, chip8.RunOptions{RateHz: instrRateHz})
	}()

	ticker := time.NewTicker(time.Second / frameRateHz)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case runErr := <-runErrC:
			cancel()
			if runErr != nil {
				fmt.Fprintf(os.Stderr, "chip-8 execution error: %v\n", runErr)
			}
			return runErr
		case <-ticker.C:
			if win.Closed() {
				break loop
			}
			poller.Poll(keypad)
			if buf, ok := frame.takeDirty(); ok {
				win.DrawGraphics(buf[:])
			}
		}
	}

	fmt.Println("exit signal detected, gracefully shutting down...")
	cancel()
	<-runErrC
	return nil
}
