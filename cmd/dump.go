package cmd

import (
	"context"
	"fmt"

	"github.com/bradford-hamilton/chip8vm/internal/chip8"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var dumpSteps int

// dumpCmd runs a ROM headlessly for a fixed number of steps and spews the
// resulting VM state, for debugging a ROM or the VM itself without a
// window or audio device.
var dumpCmd = &cobra.Command{
	Use:   "dump path/to/rom",
	Short: "run a ROM headlessly and print its VM state",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().IntVar(&dumpSteps, "steps", 1, "number of instructions to execute before dumping state")
}

func runDump(cmd *cobra.Command, args []string) error {
	romPath := args[0]

	vm := chip8.NewVM()
	if err := vm.LoadROMFile(romPath); err != nil {
		return fmt.Errorf("loading rom %s: %w", romPath, err)
	}

	ctx := context.Background()
	for i := 0; i < dumpSteps; i++ {
		if err := vm.Step(ctx); err != nil {
			fmt.Printf("stopped after %d step(s): %v\n\n", i, err)
			break
		}
	}

	spew.Dump(vm.State())
	return nil
}
