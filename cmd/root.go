package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// currentReleaseVersion is used to print the version the user currently has downloaded
const currentReleaseVersion = "v0.1.0"

// rootCmd is the base for all commands.
var rootCmd = &cobra.Command{
	Use:   "chip8vm [command]",
	Short: "chip8vm is a CHIP-8 virtual machine",
	Long:  "chip8vm is a CHIP-8 virtual machine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `chip8vm help` for more information")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs chip8vm according to the user's command/subcommand/flags. It
// is the pixelgl.Run payload in main.go, so it executes on the main thread.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
