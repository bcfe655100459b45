package main

import (
	"github.com/bradford-hamilton/chip8vm/cmd"
	"github.com/faiface/pixel/pixelgl"
)

func main() {
	// pixelgl needs access to the main thread, so the whole command tree
	// (including the dump subcommand, which never opens a window) runs
	// inside pixelgl.Run -- this pattern is straight from the teacher.
	pixelgl.Run(cmd.Execute)
}
