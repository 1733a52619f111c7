package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for GHS
var RootCmd = &cobra.Command{
	Use:              "ghs",
	Short:            "GHS minimum spanning tree simulator",
	TraverseChildren: true,
}
