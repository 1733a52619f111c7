package commands

import (
	"github.com/mosaicnetworks/ghs/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	GHS config.Config `mapstructure:",squash"`

	// Verify checks the result of a run against the reference spanning tree.
	Verify bool `mapstructure:"verify"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		GHS:    *config.NewDefaultConfig(),
		Verify: true,
	}
}
