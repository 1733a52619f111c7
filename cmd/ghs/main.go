package main

import (
	_ "net/http/pprof"
	"os"

	cmd "github.com/mosaicnetworks/ghs/cmd/ghs/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewMSTCmd(),
		cmd.NewTraceCmd(),
		cmd.VersionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
